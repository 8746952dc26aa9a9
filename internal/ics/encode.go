package ics

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

// Encode serializes provider events into an iCalendar document named calendarName.
// Missing optional fields never fail the encoding; they are replaced with empty text
// or, for start and end, the current instant.
// A calendar without events is still written as an empty VCALENDAR.
func (c *Codec) Encode(calendarName string, events []*calendar.Event) ([]byte, error) {
	cal := c.Calendar(calendarName, events)
	if len(cal.Children) == 0 {
		return c.encodeEmpty(cal)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar to iCal format: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeEmpty writes a VCALENDAR that holds no components. go-ical refuses to
// encode one, so a placeholder VEVENT is encoded and its block cut from the output.
func (c *Codec) encodeEmpty(cal *ical.Calendar) ([]byte, error) {
	placeholder := ical.NewComponent(ical.CompEvent)
	placeholder.Props.SetText(ical.PropUID, "placeholder")
	placeholder.Props.SetDateTime(ical.PropDateTimeStamp, c.now().UTC())
	placeholder.Props.SetDateTime(ical.PropDateTimeStart, c.now().UTC())

	withChild := &ical.Calendar{Component: &ical.Component{
		Name:     cal.Name,
		Props:    cal.Props,
		Children: []*ical.Component{placeholder},
	}}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(withChild); err != nil {
		return nil, fmt.Errorf("failed to encode calendar to iCal format: %w", err)
	}

	var out bytes.Buffer
	inEvent := false
	for _, line := range strings.SplitAfter(buf.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "BEGIN:"+ical.CompEvent):
			inEvent = true
		case inEvent && strings.HasPrefix(line, "END:"+ical.CompEvent):
			inEvent = false
		case !inEvent:
			out.WriteString(line)
		}
	}
	return out.Bytes(), nil
}

// Calendar builds the VCALENDAR component holding one VEVENT per event.
func (c *Codec) Calendar(calendarName string, events []*calendar.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.Set(calendarNameProp(calendarName))

	for _, event := range events {
		if event == nil {
			continue
		}
		cal.Children = append(cal.Children, c.toICal(event))
	}
	return cal
}

// calendarNameProp builds X-WR-CALNAME as escaped text without a VALUE parameter.
func calendarNameProp(name string) *ical.Prop {
	p := ical.NewProp(propCalendarName)
	p.SetText(name)
	delete(p.Params, ical.ParamValue)
	return p
}

// toICal converts a provider event to an ical.Component (VEvent).
func (c *Codec) toICal(event *calendar.Event) *ical.Component {
	now := c.now().UTC()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, eventUID(event))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now)
	setEventTime(ve, ical.PropDateTimeStart, event.Start, now)
	setEventTime(ve, ical.PropDateTimeEnd, event.End, now)
	ve.Props.SetText(ical.PropSummary, event.Summary)
	ve.Props.SetText(ical.PropDescription, event.Description)
	ve.Props.SetText(ical.PropLocation, event.Location)

	if event.HtmlLink != "" {
		p := ical.NewProp(ical.PropURL)
		p.Value = event.HtmlLink
		ve.Props.Set(p)
	}

	for _, line := range event.Recurrence {
		if !strings.HasPrefix(line, rrulePrefix) {
			continue
		}
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = strings.TrimPrefix(line, rrulePrefix)
		ve.Props.Add(p)
	}
	return ve
}

// setEventTime writes dateTime when present, else the date-only form, else fallback.
func setEventTime(ve *ical.Component, name string, dt *calendar.EventDateTime, fallback time.Time) {
	if dt != nil && dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			ve.Props.SetDateTime(name, t.UTC())
			return
		}
	}
	if dt != nil && dt.Date != "" {
		if t, err := time.Parse(dateLayout, dt.Date); err == nil {
			p := ical.NewProp(name)
			p.Params.Set(ical.ParamValue, string(ical.ValueDate))
			p.Value = t.Format("20060102")
			ve.Props.Set(p)
			return
		}
	}
	ve.Props.SetDateTime(name, fallback)
}

func eventUID(event *calendar.Event) string {
	switch {
	case event.ICalUID != "":
		return event.ICalUID
	case event.Id != "":
		return event.Id
	default:
		return uuid.NewString()
	}
}
