package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kratos/kratos/v2/log"

	"videomod/internal/pkg/filter"
)

func testConfig(url string) ClientConfig {
	cfg := DefaultClientConfig(url)
	cfg.MaxRetries = 0
	return cfg
}

func TestClassifier_Evaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/classify" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req["video_path"] != "/videos/clip01.mp4" {
			t.Errorf("Unexpected video_path %q", req["video_path"])
		}
		json.NewEncoder(w).Encode(classifyResponse{Label: "UNSAFE", Confidence: 0.95})
	}))
	defer srv.Close()

	c := NewClassifier(testConfig(srv.URL), log.DefaultLogger)
	res, err := c.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.Classification == nil {
		t.Fatal("Expected classification payload")
	}
	if res.Classification.Label != LabelUnsafe {
		t.Errorf("Expected UNSAFE, got %s", res.Classification.Label)
	}
	if res.Classification.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95, got %f", res.Classification.Confidence)
	}
}

func TestClassifier_BadLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Label: "MAYBE", Confidence: 0.5})
	}))
	defer srv.Close()

	c := NewClassifier(testConfig(srv.URL), log.DefaultLogger)
	_, err := c.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err == nil {
		t.Fatal("Expected error for unknown label")
	}
	var de *Error
	if !errors.As(err, &de) || de.Kind != ErrDecode {
		t.Errorf("Expected DECODE error, got %v", err)
	}
}

func TestModelClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusBadRequest, ErrInput},
		{http.StatusUnprocessableEntity, ErrDecode},
		{http.StatusServiceUnavailable, ErrModelLoad},
		{http.StatusInternalServerError, ErrModelLoad},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClassifier(testConfig(srv.URL), log.DefaultLogger)
		_, err := c.Evaluate(context.Background(), "/videos/clip01.mp4")
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		var de *Error
		if !errors.As(err, &de) {
			t.Fatalf("status %d: expected typed error, got %v", tc.status, err)
		}
		if de.Kind != tc.kind {
			t.Errorf("status %d: expected kind %s, got %s", tc.status, tc.kind, de.Kind)
		}
	}
}

func TestModelClient_NoBackends(t *testing.T) {
	c := NewClassifier(DefaultClientConfig(), log.DefaultLogger)
	_, err := c.Evaluate(context.Background(), "/videos/clip01.mp4")
	var de *Error
	if !errors.As(err, &de) || de.Kind != ErrModelLoad {
		t.Errorf("Expected MODEL_LOAD error with no backends, got %v", err)
	}
}

func TestObjectDetector_Evaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detections":{"3":[{"class_id":7,"class_name":"tv_logo","confidence":0.88,"box":{"x":10,"y":20,"width":64,"height":32}}]}}`))
	}))
	defer srv.Close()

	d := NewObjectDetector(testConfig(srv.URL), log.DefaultLogger)
	res, err := d.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	matches := res.Objects.BySecond[3]
	if len(matches) != 1 {
		t.Fatalf("Expected 1 detection at second 3, got %d", len(matches))
	}
	if matches[0].ClassID != 7 || matches[0].ClassName != "tv_logo" {
		t.Errorf("Unexpected match %+v", matches[0])
	}
}

func TestOCRProcessor_FlagsRestrictedTerms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":{"0":"totally fine","5":"buy free crypto today"}}`))
	}))
	defer srv.Close()

	matcher := filter.NewMatcher()
	matcher.Build([]filter.Pattern{{Term: "free crypto", Category: "scam"}})

	p := NewOCRProcessor(testConfig(srv.URL), matcher, log.DefaultLogger)
	res, err := p.Evaluate(context.Background(), "/videos/clip01.mp4")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(res.OCR.TextBySecond) != 2 {
		t.Errorf("Expected 2 text entries, got %d", len(res.OCR.TextBySecond))
	}
	if len(res.OCR.FlaggedTerms) != 1 {
		t.Fatalf("Expected 1 flagged term, got %d", len(res.OCR.FlaggedTerms))
	}
	if res.OCR.FlaggedTerms[0].Second != 5 || res.OCR.FlaggedTerms[0].Category != "scam" {
		t.Errorf("Unexpected flagged term %+v", res.OCR.FlaggedTerms[0])
	}
}

func TestObjectReport_MatchesOrderedBySecond(t *testing.T) {
	r := &ObjectReport{BySecond: map[int][]ObjectMatch{
		7:  {{ClassID: 3}},
		2:  {{ClassID: 1}, {ClassID: 2}},
		11: {{ClassID: 4}},
	}}
	for i := 0; i < 10; i++ {
		ms := r.Matches()
		if len(ms) != 4 {
			t.Fatalf("Expected 4 matches, got %d", len(ms))
		}
		for j, want := range []int32{1, 2, 3, 4} {
			if ms[j].ClassID != want {
				t.Fatalf("Unstable flattening order: %+v", ms)
			}
		}
	}
}

func TestFailureFrom(t *testing.T) {
	f := FailureFrom(Errorf(ErrModelLoad, "weights missing"))
	if f.Kind != ErrModelLoad {
		t.Errorf("Expected MODEL_LOAD, got %s", f.Kind)
	}
	f = FailureFrom(context.DeadlineExceeded)
	if f.Kind != ErrTimeout {
		t.Errorf("Expected TIMEOUT, got %s", f.Kind)
	}
	f = FailureFrom(errors.New("boom"))
	if f.Kind != ErrDecode {
		t.Errorf("Expected DECODE fallback, got %s", f.Kind)
	}
}
