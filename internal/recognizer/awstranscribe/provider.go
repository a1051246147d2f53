// Package awstranscribe implements a streaming recognition provider backed by
// Amazon Transcribe.
package awstranscribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"github.com/aws/smithy-go"

	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/pkg/logger"
)

// startFunc opens a transcription stream in the given region
type startFunc func(ctx context.Context, region string, in *transcribestreaming.StartStreamTranscriptionInput) (eventStream, error)

// Provider opens Amazon Transcribe streaming sessions
type Provider struct {
	start  startFunc
	logger *logger.Logger
}

// NewProvider loads AWS credentials from the default chain and creates a provider.
// defaultRegion is used when a session does not name one.
func NewProvider(ctx context.Context, defaultRegion string, log *logger.Logger) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(defaultRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	clients := newClientCache(awsCfg)
	start := func(ctx context.Context, region string, in *transcribestreaming.StartStreamTranscriptionInput) (eventStream, error) {
		out, err := clients.get(region).StartStreamTranscription(ctx, in)
		if err != nil {
			return nil, err
		}
		return out.GetStream(), nil
	}

	return newProvider(start, log), nil
}

func newProvider(start startFunc, log *logger.Logger) *Provider {
	return &Provider{
		start:  start,
		logger: log.Named("aws-transcribe"),
	}
}

func (p *Provider) Name() string { return "aws" }

func (p *Provider) Streaming() bool { return true }

// Open starts a stream with automatic language identification over the
// session's language options.
func (p *Provider) Open(ctx context.Context, sc transcription.SessionConfig) (transcription.Session, error) {
	in := &transcribestreaming.StartStreamTranscriptionInput{
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(int32(sc.SampleRate)),
	}
	if sc.IdentifyLanguage {
		in.IdentifyLanguage = true
		in.LanguageOptions = aws.String(strings.Join(sc.LanguageOptions, ","))
	} else if len(sc.LanguageOptions) > 0 {
		in.LanguageCode = types.LanguageCode(sc.LanguageOptions[0])
	}

	p.logger.Info("Starting Transcribe stream",
		logger.String("region", sc.Region),
		logger.Strings("language_options", sc.LanguageOptions),
		logger.Int("sample_rate", sc.SampleRate))

	stream, err := p.start(ctx, sc.Region, in)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s: %s", transcription.ErrServiceFault, apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return nil, fmt.Errorf("%w: starting stream: %w", transcription.ErrTransport, err)
	}

	return newSession(stream, p.logger.With(logger.String("region", sc.Region))), nil
}

// clientCache holds one client per region
type clientCache struct {
	cfg     aws.Config
	mu      sync.Mutex
	clients map[string]*transcribestreaming.Client
}

func newClientCache(cfg aws.Config) *clientCache {
	return &clientCache{cfg: cfg, clients: make(map[string]*transcribestreaming.Client)}
}

func (c *clientCache) get(region string) *transcribestreaming.Client {
	if region == "" {
		region = c.cfg.Region
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[region]; ok {
		return client
	}
	client := transcribestreaming.NewFromConfig(c.cfg, func(o *transcribestreaming.Options) {
		o.Region = region
	})
	c.clients[region] = client
	return client
}
