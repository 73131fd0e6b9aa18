// Package ingest loads raw customer feedback into the store from local
// files: JSON exports, plain text dumps, and PDF survey exports.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/store"
)

// File parses one feedback file by extension. JSON files carry an array of
// {"text": ..., "source": ...}; text files carry one item per non-empty
// line; PDFs are imported as a single item of extracted text.
func File(path string) ([]models.FeedbackRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return fromJSON(path)
	case ".txt", ".log":
		return fromText(path)
	case ".pdf":
		return fromPDF(path)
	}
	return nil, fmt.Errorf("unsupported feedback file type: %s", path)
}

func fromJSON(path string) ([]models.FeedbackRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var out []models.FeedbackRecord
	for _, item := range raw {
		text := NormalizeText(item.Text)
		if text == "" {
			continue
		}
		source := item.Source
		if source == "" {
			source = "import"
		}
		out = append(out, models.FeedbackRecord{RawText: text, Source: source})
	}
	return out, nil
}

func fromText(path string) ([]models.FeedbackRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var out []models.FeedbackRecord
	for _, line := range strings.Split(string(data), "\n") {
		text := NormalizeText(line)
		if text == "" {
			continue
		}
		out = append(out, models.FeedbackRecord{RawText: text, Source: source})
	}
	return out, nil
}

func fromPDF(path string) ([]models.FeedbackRecord, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	text := NormalizeText(string(data))
	if text == "" {
		return nil, nil
	}
	return []models.FeedbackRecord{{RawText: text, Source: "pdf"}}, nil
}

// Import inserts records and returns how many were stored.
func Import(ctx context.Context, st *store.Store, records []models.FeedbackRecord) (int, error) {
	n := 0
	for _, rec := range records {
		if _, err := st.InsertFeedback(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SampleRecords returns a seed set for demos and local development.
func SampleRecords() []models.FeedbackRecord {
	return []models.FeedbackRecord{
		{RawText: "Login button unresponsive on Safari 15.2, enterprise customer blocked. Urgency: critical.", Source: "email"},
		{RawText: "User profile page fails to load on mobile devices. Roughly 45% of our users are mobile-first.", Source: "support"},
		{RawText: "Please add two-factor authentication. Several enterprise accounts are asking for this security feature.", Source: "email"},
		{RawText: "The main dashboard layout is confusing for new users, onboarding metrics show drop-off.", Source: "chat"},
		{RawText: "Reporting endpoints are very slow during peak hours, 5-8 second load times. Performance keeps degrading.", Source: "support"},
		{RawText: "Would be great to have CSV export on the user tables. Competitors already support this feature.", Source: "notion"},
		{RawText: "Search results error out when the query contains a quote character.", Source: "chat"},
		{RawText: "Dark mode would be a nice addition for late-night usage.", Source: "chat"},
	}
}
