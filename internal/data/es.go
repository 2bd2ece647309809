package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"videomod/internal/conf"
	"videomod/internal/pkg/detector"
	"videomod/internal/pkg/quality"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/go-kratos/kratos/v2/log"
)

type ESClient struct {
	*elasticsearch.Client
}

func NewESClient(conf *conf.Data) (*ESClient, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{
			conf.Elasticsearch.Addr,
		},
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ESClient{es}, nil
}

// qualityReportSink indexes quality reports for offline analysis.
type qualityReportSink struct {
	es    *ESClient
	index string
	log   *log.Helper
}

// NewQualityReportSink creates the elasticsearch-backed report sink.
func NewQualityReportSink(es *ESClient, conf *conf.Data, logger log.Logger) quality.ReportSink {
	return &qualityReportSink{
		es:    es,
		index: conf.Elasticsearch.QualityIndex,
		log:   log.NewHelper(logger),
	}
}

type qualityDoc struct {
	ContentID  string    `json:"content_id"`
	VideoScore float64   `json:"video_score"`
	AudioScore float64   `json:"audio_score"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (s *qualityReportSink) SaveQualityReport(ctx context.Context, contentID string, report *detector.QualityReport) error {
	doc := qualityDoc{
		ContentID:  contentID,
		VideoScore: report.VideoScore,
		AudioScore: report.AudioScore,
		RecordedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal quality doc: %w", err)
	}

	res, err := s.es.Index(s.index, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(contentID),
	)
	if err != nil {
		return fmt.Errorf("failed to index quality report: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch rejected quality report: %s", res.String())
	}
	return nil
}
