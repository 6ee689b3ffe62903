package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/delta10/wfs-filter-proxy/internal/config"
)

// LogBackend pushes audit entries to a Loki compatible push API.
type LogBackend struct {
	Config config.LogBackend
	Client *http.Client
	// Now is used to timestamp entries.
	Now func() time.Time
}

func NewLogBackend(backend config.LogBackend) *LogBackend {
	return &LogBackend{
		Config: backend,
		Client: &http.Client{Timeout: 10 * time.Second},
		Now:    time.Now,
	}
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

type Body struct {
	Streams []Stream `json:"streams"`
}

// WriteLog pushes a single JSON encoded line into the stream identified by
// labels.
func (l *LogBackend) WriteLog(ctx context.Context, labels map[string]string, line map[string]any) error {
	pushURL, err := url.Parse(l.Config.BaseURL)
	if err != nil {
		return err
	}
	pushURL = pushURL.JoinPath("/api/v1/push")

	marshalledLine, err := json.Marshal(line)
	if err != nil {
		return err
	}

	body := Body{
		Streams: []Stream{{
			Stream: labels,
			Values: [][]any{{fmt.Sprint(l.Now().UnixNano()), string(marshalledLine)}},
		}},
	}

	marshalled, err := json.Marshal(body)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, pushURL.String(), bytes.NewReader(marshalled))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := l.Client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusNoContent {
		return fmt.Errorf("could not create log entry: %s", response.Status)
	}

	log.WithFields(log.Fields{"url": pushURL.String(), "labels": labels}).Debug("pushed log entry")
	return nil
}
