package transcripts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type docFormat int

const (
	formatText docFormat = iota
	formatSRT
	formatJSON
	formatHTML
)

func (f docFormat) String() string {
	switch f {
	case formatSRT:
		return "srt"
	case formatJSON:
		return "json"
	case formatHTML:
		return "html"
	default:
		return "text"
	}
}

// detectFormat prefers the type declared in the feed, then the response Content-Type,
// then the URL extension.
func detectFormat(declared, observed, rawURL string) docFormat {
	for _, ct := range []string{declared, observed} {
		if f, ok := formatForMediaType(ct); ok {
			return f
		}
	}
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch strings.ToLower(path.Ext(u)) {
	case ".srt":
		return formatSRT
	case ".json":
		return formatJSON
	case ".html", ".htm":
		return formatHTML
	}
	return formatText
}

func formatForMediaType(ct string) (docFormat, bool) {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return formatText, false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	}
	switch mt {
	case "text/plain", "text/vtt":
		return formatText, true
	case "application/srt", "application/x-subrip", "text/srt":
		return formatSRT, true
	case "application/json", "text/json":
		return formatJSON, true
	case "text/html", "application/xhtml+xml":
		return formatHTML, true
	}
	return formatText, false
}

// decodeDocument turns a fetched transcript body into plain text.
func decodeDocument(f docFormat, body []byte) (string, error) {
	switch f {
	case formatSRT:
		return stripSRT(string(body)), nil
	case formatJSON:
		doc, err := classifyJSON(body)
		if err != nil {
			return "", err
		}
		return doc.text(), nil
	case formatHTML:
		return htmlText(body)
	default:
		return string(body), nil
	}
}

var (
	srtIndexLine  = regexp.MustCompile(`^\d+$`)
	srtTimingLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> `)
)

// stripSRT keeps only dialogue lines, in order.
func stripSRT(doc string) string {
	doc = strings.TrimPrefix(doc, "\ufeff")
	var kept []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || srtIndexLine.MatchString(trimmed) || srtTimingLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

type jsonShape int

const (
	shapeUnrecognized jsonShape = iota
	shapeResults
	shapeSegments
	shapeText
	shapeStringList
)

// jsonDocument is a transcript body classified into one of the known shapes.
// Unrecognized bodies keep their compact serialization.
type jsonDocument struct {
	shape jsonShape
	parts []string
	raw   string
}

type textSegment struct {
	Text string `json:"text"`
}

func classifyJSON(body []byte) (jsonDocument, error) {
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return jsonDocument{}, fmt.Errorf("parse json transcript: %w", err)
	}

	switch v := probe.(type) {
	case map[string]any:
		var obj map[string]json.RawMessage
		_ = json.Unmarshal(body, &obj)
		if parts, ok := segmentTexts(obj["results"]); ok {
			return jsonDocument{shape: shapeResults, parts: parts}, nil
		}
		if parts, ok := segmentTexts(obj["segments"]); ok {
			return jsonDocument{shape: shapeSegments, parts: parts}, nil
		}
		if s, ok := v["text"].(string); ok {
			return jsonDocument{shape: shapeText, parts: []string{strings.TrimSpace(s)}}, nil
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
				continue
			}
			b, _ := json.Marshal(item)
			parts = append(parts, string(b))
		}
		return jsonDocument{shape: shapeStringList, parts: parts}, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return jsonDocument{}, fmt.Errorf("compact json transcript: %w", err)
	}
	return jsonDocument{shape: shapeUnrecognized, raw: compact.String()}, nil
}

// segmentTexts decodes a list of {text} objects, skipping entries without text.
func segmentTexts(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var segs []textSegment
	if err := json.Unmarshal(raw, &segs); err != nil {
		return nil, false
	}
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return parts, true
}

func (d jsonDocument) text() string {
	if d.shape == shapeUnrecognized {
		return d.raw
	}
	return strings.Join(d.parts, "\n")
}

// htmlText flattens an HTML transcript page into paragraph-separated text.
func htmlText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html transcript: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var blocks []string
	doc.Find("p, li, h1, h2, h3, h4, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			blocks = append(blocks, t)
		}
	})
	if len(blocks) == 0 {
		return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
	}
	return strings.Join(blocks, "\n"), nil
}
