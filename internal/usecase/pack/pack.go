// Package pack turns heterogeneous store records into compact passages for
// the answer prompt. Each known table has one canonical shape; anything else
// is treated as a free-text document.
package pack

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragbot/internal/domain/plan"
	"github.com/kailas-cloud/ragbot/internal/domain/record"
)

// Table tags with a dedicated canonical shape.
const (
	TableUsers        = "users"
	TableCampaigns    = "campaigns"
	TableTransactions = "sales_transactions"
)

const (
	// MaxDocumentRunes bounds the content of a generic document passage.
	MaxDocumentRunes = 1000

	defaultSource     = "es"
	aggregationSource = "es-agg"
	aggregationTitle  = "aggregation"
)

// Passage is the prompt-facing projection of a record.
type Passage struct {
	Title   string
	Source  string
	URL     string
	Content string
}

type variant struct {
	title   func(record.Record) string
	content func(record.Record) object
}

var variants = map[string]variant{
	TableUsers:        {title: userTitle, content: userContent},
	TableCampaigns:    {title: campaignTitle, content: campaignContent},
	TableTransactions: {title: transactionTitle, content: transactionContent},
}

var documentVariant = variant{title: documentTitle, content: documentContent}

// Pack projects records into passages, preserving order.
func Pack(records []record.Record) []Passage {
	out := make([]Passage, 0, len(records))
	for _, r := range records {
		out = append(out, packOne(r))
	}
	return out
}

func packOne(r record.Record) Passage {
	v, ok := variants[r.Table()]
	if !ok {
		v = documentVariant
	}

	content, err := v.content(r).encode()
	if err != nil {
		// Only unencodable source values (NaN and the like) land here.
		content = ""
	}

	return Passage{
		Title:   v.title(r),
		Source:  stringOr(r, "source", defaultSource),
		URL:     stringOr(r, "url", ""),
		Content: content,
	}
}

// Aggregation builds the single synthetic passage carrying an executed plan
// and the aggregation values the store returned for it.
func Aggregation(body plan.Plan, aggregations json.RawMessage) (Passage, error) {
	query, err := body.MarshalJSON()
	if err != nil {
		return Passage{}, fmt.Errorf("marshal plan: %w", err)
	}
	aggs := aggregations
	if len(strings.TrimSpace(string(aggs))) == 0 {
		aggs = json.RawMessage("{}")
	}
	content, err := object{
		{key: "type", value: "aggregation"},
		{key: "query", value: json.RawMessage(query)},
		{key: "aggregations", value: aggs},
	}.encode()
	if err != nil {
		return Passage{}, fmt.Errorf("encode aggregation: %w", err)
	}
	return Passage{
		Title:   aggregationTitle,
		Source:  aggregationSource,
		Content: content,
	}, nil
}

func userContent(r record.Record) object {
	return compact(
		field{"type", "user"},
		field{"id", r.Fields["id"]},
		field{"first_name", r.Fields["first_name"]},
		field{"last_name", r.Fields["last_name"]},
		field{"nationality", r.Fields["nationality"]},
		field{"date_of_birth", r.Fields["date_of_birth"]},
		field{"residency", compact(
			field{"country", r.Fields["country_of_residency"]},
			field{"city", r.Fields["city_of_residency"]},
		)},
	)
}

func campaignContent(r record.Record) object {
	return compact(
		field{"type", "campaign"},
		field{"id", r.Fields["id"]},
		field{"series_code", r.Fields["series_code"]},
		field{"campaign_type", r.Fields["campaign_type"]},
		field{"ticket_price", r.Fields["ticket_price"]},
		field{"start_date", r.Fields["start_date"]},
		field{"end_date", r.Fields["end_date"]},
		field{"total_tickets", r.Fields["total_tickets"]},
		field{"price_value", r.Fields["price_value"]},
	)
}

func transactionContent(r record.Record) object {
	user := r.Map("user")
	campaign := r.Map("campaign")
	return compact(
		field{"type", "transaction"},
		field{"id", r.Fields["id"]},
		field{"transaction_id", r.Fields["transaction_id"]},
		field{"purchase_date_time", r.Fields["purchase_date_time"]},
		field{"payment_channel", r.Fields["payment_channel"]},
		field{"payment_method", r.Fields["payment_method"]},
		field{"currency", r.Fields["currency"]},
		field{"revenue", r.Fields["revenue"]},
		field{"is_first_time_buyer", r.Fields["is_first_time_buyer"]},
		field{"user", compact(
			field{"id", user["id"]},
			field{"nationality", user["nationality"]},
			field{"country_of_residency", user["country_of_residency"]},
			field{"city_of_residency", user["city_of_residency"]},
		)},
		field{"campaign", compact(
			field{"id", campaign["id"]},
			field{"series_code", campaign["series_code"]},
			field{"campaign_type", campaign["campaign_type"]},
		)},
	)
}

// documentContent is not compacted: an empty body still yields "content":"".
func documentContent(r record.Record) object {
	content := strings.TrimSpace(text(r.Fields["content"]))
	if runes := []rune(content); len(runes) > MaxDocumentRunes {
		content = string(runes[:MaxDocumentRunes])
	}
	return object{
		{key: "type", value: "document"},
		{key: "content", value: content},
	}
}

func userTitle(r record.Record) string {
	name := strings.TrimSpace(
		strings.TrimSpace(text(r.Fields["first_name"])) + " " + strings.TrimSpace(text(r.Fields["last_name"])),
	)
	title := "user:" + text(r.Fields["id"])
	if name != "" {
		title += " " + name
	}
	return strings.TrimSpace(title)
}

func campaignTitle(r record.Record) string {
	sc := text(r.Fields["series_code"])
	if sc == "" {
		sc = text(r.Map("campaign")["series_code"])
	}
	if sc == "" {
		sc = text(r.Fields["id"])
	}
	return "campaign:" + sc
}

func transactionTitle(r record.Record) string {
	title := "transaction:" + text(r.Fields["id"])
	if sc := text(r.Map("campaign")["series_code"]); sc != "" {
		title += " campaign:" + sc
	}
	return title
}

func documentTitle(r record.Record) string {
	if t := text(r.Fields["title"]); t != "" {
		return t
	}
	return "document"
}

func stringOr(r record.Record, key, def string) string {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return def
	}
	return text(v)
}

// text renders a scalar for titles; nil and composite values render empty.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
