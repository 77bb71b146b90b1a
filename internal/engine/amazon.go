package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/valpere/wordshift/internal/language"
)

// amazonClient is the subset of *translate.Client the provider uses.
type amazonClient interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

// AmazonProvider uses Amazon Translate. The AWS client is loaded from the
// default credential chain on first use and shared by all handles. A failed
// load is retried by the next caller.
type AmazonProvider struct {
	region string
	load   func(ctx context.Context, region string) (amazonClient, error)

	mu     sync.Mutex
	client amazonClient
}

func NewAmazonProvider(region string) *AmazonProvider {
	return &AmazonProvider{region: region, load: loadAmazonClient}
}

func (p *AmazonProvider) Name() string {
	return "amazon"
}

func loadAmazonClient(ctx context.Context, region string) (amazonClient, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return translate.NewFromConfig(cfg), nil
}

func (p *AmazonProvider) awsClient(ctx context.Context) (amazonClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := p.load(ctx, p.region)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *AmazonProvider) Configure(ctx context.Context, pair language.Pair) (Handle, error) {
	h, err := newPairHandle(p.Name(), pair)
	if err != nil {
		return nil, err
	}
	if _, err := p.awsClient(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (p *AmazonProvider) EnsureModelReady(_ context.Context, h Handle, _ NetworkPolicy) error {
	_, err := ownPairHandle(p.Name(), h)
	return err
}

func (p *AmazonProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return "", err
	}
	client, err := p.awsClient(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.TranslateText(ctx, &translate.TranslateTextInput{
		SourceLanguageCode: aws.String(ph.pair.Source.String()),
		TargetLanguageCode: aws.String(ph.pair.Target.String()),
		Text:               aws.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	return aws.ToString(out.TranslatedText), nil
}

func (p *AmazonProvider) Release(h Handle) error {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != p.Name() {
		return ErrForeignHandle
	}
	return ph.release()
}
