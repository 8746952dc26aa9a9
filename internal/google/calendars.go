package google

import (
	"context"
	"slices"

	"google.golang.org/api/calendar/v3"
)

// ListCalendars returns every entry of the user's calendar list.
func (c *CalendarClient) ListCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	var items []*calendar.CalendarListEntry
	err := c.service.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, calendarError("failed to list calendars", err)
	}
	return items, nil
}

// MyCalendars returns the calendars the user owns or can write to.
func (c *CalendarClient) MyCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	return c.calendarsWithRole(ctx, "owner", "writer")
}

// OtherCalendars returns the calendars the user can only read.
func (c *CalendarClient) OtherCalendars(ctx context.Context) ([]*calendar.CalendarListEntry, error) {
	return c.calendarsWithRole(ctx, "reader", "freeBusyReader")
}

func (c *CalendarClient) calendarsWithRole(ctx context.Context, roles ...string) ([]*calendar.CalendarListEntry, error) {
	all, err := c.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*calendar.CalendarListEntry, 0, len(all))
	for _, entry := range all {
		if slices.Contains(roles, entry.AccessRole) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// GetCalendar fetches calendar metadata.
func (c *CalendarClient) GetCalendar(ctx context.Context, calendarID string) (*calendar.Calendar, error) {
	cal, err := c.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to get calendar", err)
	}
	return cal, nil
}

// CreateCalendar creates a secondary calendar.
func (c *CalendarClient) CreateCalendar(ctx context.Context, cal *calendar.Calendar) (*calendar.Calendar, error) {
	created, err := c.service.Calendars.Insert(cal).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to create calendar", err)
	}
	return created, nil
}

// UpdateCalendar patches calendar metadata.
func (c *CalendarClient) UpdateCalendar(ctx context.Context, calendarID string, cal *calendar.Calendar) (*calendar.Calendar, error) {
	updated, err := c.service.Calendars.Patch(calendarID, cal).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to update calendar", err)
	}
	return updated, nil
}

// DeleteCalendar deletes a secondary calendar.
func (c *CalendarClient) DeleteCalendar(ctx context.Context, calendarID string) error {
	if err := c.service.Calendars.Delete(calendarID).Context(ctx).Do(); err != nil {
		return calendarError("failed to delete calendar", err)
	}
	return nil
}

// AddCalendarFromURL subscribes the user to an existing calendar by id or public address.
func (c *CalendarClient) AddCalendarFromURL(ctx context.Context, calendarID string) (*calendar.CalendarListEntry, error) {
	entry, err := c.service.CalendarList.Insert(&calendar.CalendarListEntry{Id: calendarID}).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to add calendar", err)
	}
	return entry, nil
}

// CalendarProperties are the per-user display settings of a calendar list entry.
// Nil fields are left unchanged.
type CalendarProperties struct {
	Hidden          *bool
	Selected        *bool
	SummaryOverride string
	ColorID         string
	DefaultReminder bool
}

// defaultReminderMinutes is the lead time of the reminder set by DefaultReminder.
const defaultReminderMinutes = 10

// UpdateCalendarProperties patches the user's list entry for a calendar.
func (c *CalendarClient) UpdateCalendarProperties(ctx context.Context, calendarID string, props CalendarProperties) (*calendar.CalendarListEntry, error) {
	entry := &calendar.CalendarListEntry{
		SummaryOverride: props.SummaryOverride,
		ColorId:         props.ColorID,
	}
	if props.Hidden != nil {
		entry.Hidden = *props.Hidden
		entry.ForceSendFields = append(entry.ForceSendFields, "Hidden")
	}
	if props.Selected != nil {
		entry.Selected = *props.Selected
		entry.ForceSendFields = append(entry.ForceSendFields, "Selected")
	}
	if props.DefaultReminder {
		entry.DefaultReminders = []*calendar.EventReminder{
			{Method: "email", Minutes: defaultReminderMinutes},
		}
	}

	updated, err := c.service.CalendarList.Patch(calendarID, entry).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to update calendar properties", err)
	}
	return updated, nil
}
