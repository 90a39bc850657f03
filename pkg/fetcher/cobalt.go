package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// Response status vocabulary of the accelerator API. Anything outside this
// set maps to a generic provider error.
const (
	cobaltStatusStream   = "stream"
	cobaltStatusRedirect = "redirect"
	cobaltStatusTunnel   = "tunnel"
	cobaltStatusPicker   = "picker"
	cobaltStatusError    = "error"
)

type cobaltRequest struct {
	URL           string `json:"url"`
	DownloadMode  string `json:"downloadMode"`
	AudioFormat   string `json:"audioFormat"`
	AudioBitrate  string `json:"audioBitrate"`
	FilenameStyle string `json:"filenameStyle"`
}

type cobaltResponse struct {
	Status string             `json:"status"`
	URL    string             `json:"url"`
	Picker []cobaltPickerItem `json:"picker"`
	Error  *cobaltErrorInfo   `json:"error"`
}

type cobaltPickerItem struct {
	URL string `json:"url"`
}

type cobaltErrorInfo struct {
	Code    string          `json:"code"`
	Context json.RawMessage `json:"context"`
}

// CobaltProvider is the fallback acquisition path: an accelerator API that
// converts a source URL into a directly downloadable media URL.
type CobaltProvider struct {
	config *CobaltConfig
	dir    string
	client *http.Client
	logger logging.Logger
}

// NewCobaltProvider creates the accelerator provider writing into dir
func NewCobaltProvider(config *CobaltConfig, dir string, logger logging.Logger) *CobaltProvider {
	return &CobaltProvider{
		config: config,
		dir:    dir,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

func (p *CobaltProvider) Name() string {
	return "cobalt"
}

// Fetch submits the URL to the accelerator, interprets the status response
// to obtain a direct media URL, and performs a plain GET to materialize the
// file. The accelerator reports no duration, so the record carries the
// unknown sentinel.
func (p *CobaltProvider) Fetch(ctx context.Context, sourceURL string) (*track.Record, error) {
	if p.config.APIURL == "" {
		return nil, NewUnsupportedError(errors.New("accelerator API not configured"))
	}

	mediaURL, err := p.resolveMediaURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	mediaURL = p.correctPlaceholderURL(mediaURL)
	mediaURL = normalizeLoopbackHost(mediaURL, p.config.HostAlias)

	p.logger.Info("accelerator provided media URL", map[string]interface{}{
		"source": sourceURL,
		"media":  mediaURL,
	})

	localPath, err := p.materialize(ctx, mediaURL)
	if err != nil {
		return nil, err
	}

	return &track.Record{
		LocalFilePath:   localPath,
		Title:           DeriveTitleFromURL(sourceURL),
		DurationDisplay: UnknownDuration,
		SourceURL:       sourceURL,
	}, nil
}

// resolveMediaURL performs the POST handshake and maps the status union to
// either a direct media URL or a classified error.
func (p *CobaltProvider) resolveMediaURL(ctx context.Context, sourceURL string) (string, error) {
	endpoint := normalizeLoopbackHost(strings.TrimRight(p.config.APIURL, "/"), p.config.HostAlias)

	payload := cobaltRequest{
		URL:           sourceURL,
		DownloadMode:  "audio",
		AudioFormat:   "mp3",
		AudioBitrate:  p.config.AudioBitrate,
		FilenameStyle: "basic",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", NewNetworkError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewNetworkError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(p.config.APIKey) != "" {
		req.Header.Set("Authorization", "Api-Key "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", NewNetworkError(err)
	}

	var parsed cobaltResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", NewProviderError(fmt.Sprintf("http_%d", resp.StatusCode), string(data))
		}
		return "", NewProviderError("invalid_response", err.Error())
	}

	return interpretCobaltResponse(&parsed)
}

// interpretCobaltResponse maps the closed status vocabulary onto a media URL
func interpretCobaltResponse(resp *cobaltResponse) (string, error) {
	switch resp.Status {
	case cobaltStatusStream, cobaltStatusRedirect, cobaltStatusTunnel:
		if resp.URL == "" {
			return "", NewNoStreamError()
		}
		return resp.URL, nil
	case cobaltStatusPicker:
		if len(resp.Picker) > 0 && resp.Picker[0].URL != "" {
			return resp.Picker[0].URL, nil
		}
		return "", NewNoStreamError()
	case cobaltStatusError:
		code := "unknown"
		context := ""
		if resp.Error != nil {
			if resp.Error.Code != "" {
				code = resp.Error.Code
			}
			context = string(resp.Error.Context)
		}
		return "", NewProviderError(code, context)
	default:
		return "", NewProviderError("unhandled_status", resp.Status)
	}
}

// correctPlaceholderURL repairs media URLs the accelerator hands back with a
// placeholder domain or as a bare relative tunnel path, resolving them
// against the configured API base.
func (p *CobaltProvider) correctPlaceholderURL(mediaURL string) string {
	isPlaceholder := strings.Contains(mediaURL, "api.url.example")
	isRelativeTunnel := !strings.HasPrefix(mediaURL, "http") && strings.Contains(mediaURL, "/tunnel?")
	if !isPlaceholder && !isRelativeTunnel {
		return mediaURL
	}

	base, err := url.Parse(p.config.APIURL)
	if err != nil || base.Host == "" {
		p.logger.Error("cannot correct media URL without a valid API base", err, map[string]interface{}{
			"media_url": mediaURL,
		})
		return mediaURL
	}

	if isRelativeTunnel {
		if !strings.HasPrefix(mediaURL, "/") {
			mediaURL = "/" + mediaURL
		}
		return base.Scheme + "://" + base.Host + mediaURL
	}

	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return mediaURL
	}
	parsed.Scheme = base.Scheme
	parsed.Host = base.Host
	return parsed.String()
}

func (p *CobaltProvider) materialize(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", NewNetworkError(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewNetworkError(fmt.Errorf("media download returned HTTP %d", resp.StatusCode))
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", NewNetworkError(err)
	}

	localPath := filepath.Join(p.dir, uuid.New().String()+".mp3")
	out, err := os.Create(localPath)
	if err != nil {
		return "", NewNetworkError(err)
	}

	written, err := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		os.Remove(localPath)
		if err == nil {
			err = closeErr
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewNetworkError(err)
	}

	if written == 0 {
		os.Remove(localPath)
		return "", NewNoStreamError()
	}

	p.logger.Info("accelerator download complete", map[string]interface{}{
		"file":  localPath,
		"bytes": written,
	})

	return localPath, nil
}

// normalizeLoopbackHost swaps loopback hosts for the configured deployment
// alias so a containerized bot can reach an accelerator bound on the host.
func normalizeLoopbackHost(rawURL, alias string) string {
	if alias == "" {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}

	host := parsed.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return rawURL
	}

	if port := parsed.Port(); port != "" {
		parsed.Host = net.JoinHostPort(alias, port)
	} else {
		parsed.Host = alias
	}
	return parsed.String()
}
