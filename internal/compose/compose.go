// Package compose renders aggregated outages and free-text notices into
// channel-ready MarkdownV2 messages bounded by the transport payload limit.
package compose

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"OutageNotifier/internal/domain"
	"OutageNotifier/internal/normalize"
)

// Message is a rendered, not yet persisted, unit of delivery. EventIDs
// lists every raw event the text covers; OutageIDs the aggregated outages
// whose resend flag the enqueue must clear.
type Message struct {
	Language  domain.Language
	Text      string
	EventIDs  []int64
	OutageIDs []int64
}

// Composer renders messages under a payload budget measured in characters
// of the escaped text, since escaping expands length.
type Composer struct {
	maxPayload int
}

// New builds a composer for the given payload limit.
func New(maxPayload int) *Composer {
	return &Composer{maxPayload: maxPayload}
}

// Grouped renders outages of one language into messages grouped by
// (area, start time): a bold header followed by one block per district,
// districts sorted by name with empty districts last. When the next block
// would overflow the budget the current message is closed and a new one
// opens with the header repeated. Each outage's ids land in exactly one
// message.
func (c *Composer) Grouped(outages []domain.AggregatedOutage) []Message {
	type groupKey struct {
		area      string
		startTime string
	}

	groups := map[groupKey][]domain.AggregatedOutage{}
	var order []groupKey
	for _, o := range outages {
		k := groupKey{area: o.Area, startTime: o.StartTime}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].area != order[j].area {
			return order[i].area < order[j].area
		}
		return order[i].startTime < order[j].startTime
	})

	var messages []Message
	for _, k := range order {
		members := groups[k]
		sort.SliceStable(members, func(i, j int) bool {
			a, b := members[i].District, members[j].District
			if (a == "") != (b == "") {
				return a != "" // empty districts sort last
			}
			return a < b
		})

		first := members[0]
		header := c.header(first.Type, first.Planned, first.Language, k.area, k.startTime)
		messages = append(messages, c.chunk(header, members)...)
	}

	return messages
}

// chunk appends district blocks to copies of the header, flushing whenever
// the escaped length would exceed the budget.
func (c *Composer) chunk(header string, members []domain.AggregatedOutage) []Message {
	lang := members[0].Language

	var messages []Message
	current := Message{Language: lang, Text: header}

	flush := func() {
		if current.Text != header {
			messages = append(messages, current)
		}
		current = Message{Language: lang, Text: header}
	}

	for _, o := range members {
		for _, block := range c.blocks(o, header) {
			if length(current.Text)+length(block.text) > c.maxPayload {
				flush()
			}
			current.Text += block.text
			if block.carriesIDs {
				current.EventIDs = append(current.EventIDs, o.EventIDs...)
				current.OutageIDs = append(current.OutageIDs, o.ID)
			}
		}
	}
	flush()

	return messages
}

type block struct {
	text string
	// carriesIDs is true for the first fragment of an outage's block, so
	// ids are not double-counted when a block is split.
	carriesIDs bool
}

// blocks renders one outage as one block, or several when the single block
// alone would not fit under the budget next to the header. Oversized
// blocks split on house-number boundaries; a fragment that still cannot
// fit is truncated with an ellipsis rather than emitted oversized.
func (c *Composer) blocks(o domain.AggregatedOutage, header string) []block {
	budget := c.maxPayload - length(header)

	whole := c.renderBlock(o.Language, o.District, o.HouseNumbers)
	if length(whole) <= budget {
		return []block{{text: whole, carriesIDs: true}}
	}

	if len(o.HouseNumbers) < 2 {
		return []block{{text: truncate(whole, budget), carriesIDs: true}}
	}

	var out []block
	var pending []string
	for _, n := range o.HouseNumbers {
		candidate := append(append([]string{}, pending...), n)
		if len(pending) > 0 && length(c.renderBlock(o.Language, o.District, candidate)) > budget {
			// A single house number can overrun the budget on its own,
			// so flushed fragments are truncated too.
			out = append(out, block{
				text:       truncate(c.renderBlock(o.Language, o.District, pending), budget),
				carriesIDs: len(out) == 0,
			})
			pending = []string{n}
			continue
		}
		pending = candidate
	}
	if len(pending) > 0 {
		text := truncate(c.renderBlock(o.Language, o.District, pending), budget)
		out = append(out, block{text: text, carriesIDs: len(out) == 0})
	}

	return out
}

func (c *Composer) renderBlock(lang domain.Language, district string, houseNumbers []string) string {
	var b strings.Builder
	if district != "" {
		b.WriteString(normalize.EscapeMarkdown(district))
		b.WriteString("\n")
	}
	if len(houseNumbers) > 0 {
		section := fmt.Sprintf(tr(lang, houseNumbersKey), strings.Join(houseNumbers, ", "))
		b.WriteString(normalize.EscapeMarkdown(section))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (c *Composer) header(t domain.EventType, planned bool, lang domain.Language, area, startTime string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(title(t, planned, lang)))
	if area != "" {
		fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(area))
	}
	if startTime != "" {
		fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(startTime))
	}
	b.WriteString("\n")
	return b.String()
}

// Single renders one free-text notice in the given language. The text is
// the (possibly translated) announcement body; an overlong body is
// truncated under the payload budget.
func (c *Composer) Single(e domain.RawEvent, lang domain.Language, text string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(title(e.Type, e.Planned, lang)))
	if e.Area != "" {
		fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(e.Area))
	}
	if e.StartTime != "" {
		fmt.Fprintf(&b, "*%s*\n", normalize.EscapeMarkdown(e.StartTime))
	}
	if e.District != "" {
		fmt.Fprintf(&b, "%s\n", normalize.EscapeMarkdown(e.District))
	}
	if e.HouseNumbers != "" {
		section := fmt.Sprintf(tr(lang, houseNumbersKey), e.HouseNumbers)
		fmt.Fprintf(&b, "%s\n", normalize.EscapeMarkdown(section))
	}
	if text != "" {
		details := fmt.Sprintf(tr(lang, detailsKey), text)
		fmt.Fprintf(&b, "%s\n", normalize.EscapeMarkdown(details))
	}

	return Message{
		Language: lang,
		Text:     truncate(b.String(), c.maxPayload),
		EventIDs: []int64{e.ID},
	}
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, limit int) string {
	if length(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	if limit == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
