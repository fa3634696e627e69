// Package awspricing fetches on-demand prices from the AWS Pricing API and
// normalizes them into snapshot rates. It backs the `pricing update` command;
// the simulation path itself only ever reads the resulting snapshot.
package awspricing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/shopspring/decimal"

	"cloudsave/db/clickhouse"
)

// The Pricing API is only served from these regions.
const pricingAPIRegion = "us-east-1"

// Fetcher pulls price lists for one billing region.
type Fetcher struct {
	client *pricing.Client
}

// NewFetcher builds a fetcher from the ambient AWS configuration.
func NewFetcher(ctx context.Context) (*Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(pricingAPIRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Fetcher{client: pricing.NewFromConfig(cfg)}, nil
}

// FetchOnDemandRates returns normalized hourly on-demand rates for a service
// code (e.g. AmazonEC2) in a region. The caller attaches them to a snapshot.
func (f *Fetcher) FetchOnDemandRates(ctx context.Context, serviceCode, region string, limit int32) ([]*clickhouse.Rate, error) {
	input := &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		MaxResults:  aws.Int32(limit),
		Filters: []types.Filter{
			{
				Field: aws.String("regionCode"),
				Type:  types.FilterTypeTermMatch,
				Value: aws.String(region),
			},
		},
	}

	out, err := f.client.GetProducts(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("pricing API request failed: %w", err)
	}

	var rates []*clickhouse.Rate
	for _, doc := range out.PriceList {
		rate, err := parsePriceDocument(doc)
		if err != nil {
			// Price list documents are uneven; skip what does not parse.
			continue
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// priceDocument mirrors the slice of an AWS price list entry we read.
type priceDocument struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

func parsePriceDocument(doc string) (*clickhouse.Rate, error) {
	var parsed priceDocument
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price document: %w", err)
	}

	service := parsed.Product.Attributes["servicecode"]
	if shape := parsed.Product.Attributes["instanceType"]; shape != "" {
		service = fmt.Sprintf("%s:%s", service, shape)
	}

	for _, term := range parsed.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			usd, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := decimal.NewFromString(usd)
			if err != nil || price.IsZero() {
				continue
			}
			return &clickhouse.Rate{
				Service:   service,
				Unit:      normalizeUnit(dim.Unit),
				UnitPrice: price,
				Currency:  "USD",
			}, nil
		}
	}
	return nil, fmt.Errorf("no usable on-demand dimension for %s", service)
}

// normalizeUnit maps AWS price list units onto the engine's unit kinds.
func normalizeUnit(unit string) string {
	switch unit {
	case "Hrs", "Hours":
		return "hour"
	case "GB-Mo":
		return "GB-month"
	case "GB":
		return "GB"
	case "Requests":
		return "request"
	default:
		return unit
	}
}
