package ics

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"calbridge/internal/models"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// propLicLocation names the IANA zone behind a custom VTIMEZONE in many exports.
const propLicLocation = "X-LIC-LOCATION"

// contentLine matches the start of a "NAME[;params]:value" line.
var contentLine = regexp.MustCompile(`^[A-Za-z0-9-]+[;:]`)

// Decode parses an iCalendar document into normalized events, in document order.
// It never fails: lines that are not content lines are dropped before parsing, and
// a document that still cannot be parsed yields whatever events were read before
// the damage.
func (c *Codec) Decode(r io.Reader) []models.NormalizedEvent {
	events := make([]models.NormalizedEvent, 0)
	dec := ical.NewDecoder(c.sanitize(r))

	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Warn("Could not parse interchange document", "error", err, "decoded", len(events))
			break
		}

		zones := timezones(cal)
		for _, ev := range cal.Events() {
			events = append(events, c.normalize(ev.Component, zones))
		}
	}

	c.logger.Debug("Decoded interchange document", "count", len(events))
	return events
}

// sanitize drops blank lines and lines that are neither content lines nor
// continuations of a kept content line.
func (c *Codec) sanitize(r io.Reader) io.Reader {
	var (
		out     strings.Builder
		dropped int
		keeping bool
	)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")

		switch {
		case trimmed == "":
		case trimmed[0] == ' ' || trimmed[0] == '\t':
			if keeping {
				out.WriteString(trimmed)
				out.WriteString("\r\n")
			} else {
				dropped++
			}
		case contentLine.MatchString(trimmed) && strings.Contains(trimmed, ":"):
			keeping = true
			out.WriteString(trimmed)
			out.WriteString("\r\n")
		default:
			keeping = false
			dropped++
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("Could not read interchange document", "error", err)
			}
			break
		}
	}

	if dropped > 0 {
		c.logger.Warn("Dropped malformed lines from interchange document", "lines", dropped)
	}
	return strings.NewReader(out.String())
}

// normalize extracts the fields of a single VEVENT. Bad date values leave the
// corresponding field absent instead of failing the block.
func (c *Codec) normalize(comp *ical.Component, zones map[string]*time.Location) models.NormalizedEvent {
	out := models.NormalizedEvent{
		UID:         propText(comp, ical.PropUID),
		Summary:     propText(comp, ical.PropSummary),
		Description: propText(comp, ical.PropDescription),
		Location:    propText(comp, ical.PropLocation),
	}

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		if t, ok := c.propTime(prop, zones, out.UID); ok {
			out.Start = &t
			out.AllDay = isDateOnly(prop)
		}
	}

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, ok := c.propTime(prop, zones, out.UID); ok {
			out.End = &t
		}
	}

	for _, prop := range comp.Props[ical.PropRecurrenceRule] {
		if _, err := rrule.StrToROption(prop.Value); err != nil {
			c.logger.Warn("Dropping invalid RRULE", "uid", out.UID, "value", prop.Value, "error", err)
			continue
		}
		out.Recurrence = append(out.Recurrence, rrulePrefix+prop.Value)
	}

	return out
}

// propTime reads a date or date-time property. A TZID the runtime cannot load is
// resolved through the document's VTIMEZONE, else the value is read as UTC.
func (c *Codec) propTime(prop *ical.Prop, zones map[string]*time.Location, uid string) (time.Time, bool) {
	t, err := prop.DateTime(time.UTC)
	if err == nil {
		return t, true
	}

	tzid := prop.Params.Get(ical.ParamTimezoneID)
	if tzid == "" {
		c.logger.Warn("Ignoring unreadable date", "property", prop.Name, "uid", uid, "value", prop.Value, "error", err)
		return time.Time{}, false
	}

	loc, ok := zones[tzid]
	if !ok {
		c.logger.Warn("Unknown TZID, reading time as UTC", "property", prop.Name, "uid", uid, "tzid", tzid)
		loc = time.UTC
	}

	floating := ical.NewProp(prop.Name)
	floating.Value = prop.Value
	for name, values := range prop.Params {
		if name != ical.ParamTimezoneID {
			floating.Params[name] = values
		}
	}

	t, err = floating.DateTime(loc)
	if err != nil {
		c.logger.Warn("Ignoring unreadable date", "property", prop.Name, "uid", uid, "value", prop.Value, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// timezones maps the TZID of each VTIMEZONE to a location. X-LIC-LOCATION wins;
// a zone with a single observance becomes a fixed offset.
func timezones(cal *ical.Calendar) map[string]*time.Location {
	zones := make(map[string]*time.Location)
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		tzid := propText(child, ical.PropTimezoneID)
		if tzid == "" {
			continue
		}

		if name := propText(child, propLicLocation); name != "" {
			if loc, err := time.LoadLocation(name); err == nil {
				zones[tzid] = loc
				continue
			}
		}

		if len(child.Children) == 1 {
			if offset, ok := parseUTCOffset(propText(child.Children[0], ical.PropTimezoneOffsetTo)); ok {
				zones[tzid] = time.FixedZone(tzid, offset)
			}
		}
	}
	return zones
}

// parseUTCOffset parses "+hhmm" or "+hhmmss" into seconds east of UTC.
func parseUTCOffset(v string) (int, bool) {
	if len(v) != 5 && len(v) != 7 {
		return 0, false
	}
	sign := 1
	switch v[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, false
	}

	seconds := 0
	for i, unit := range []int{3600, 60, 1} {
		start := 1 + 2*i
		if start >= len(v) {
			break
		}
		n, err := strconv.Atoi(v[start : start+2])
		if err != nil {
			return 0, false
		}
		seconds += n * unit
	}
	return sign * seconds, true
}

func propText(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}

func isDateOnly(prop *ical.Prop) bool {
	return prop.ValueType() == ical.ValueDate || len(prop.Value) == len("20060102")
}
