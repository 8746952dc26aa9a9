package google

import (
	"context"

	"google.golang.org/api/calendar/v3"
)

// ListSettings returns the user's calendar settings.
func (c *CalendarClient) ListSettings(ctx context.Context) ([]*calendar.Setting, error) {
	var settings []*calendar.Setting
	err := c.service.Settings.List().Pages(ctx, func(page *calendar.Settings) error {
		settings = append(settings, page.Items...)
		return nil
	})
	if err != nil {
		return nil, calendarError("failed to list settings", err)
	}
	return settings, nil
}

// GetSetting fetches a single user setting such as "timezone".
func (c *CalendarClient) GetSetting(ctx context.Context, settingID string) (*calendar.Setting, error) {
	s, err := c.service.Settings.Get(settingID).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to get setting", err)
	}
	return s, nil
}

// WatchSettings opens a notification channel for settings changes.
func (c *CalendarClient) WatchSettings(ctx context.Context, channel *calendar.Channel) (*calendar.Channel, error) {
	ch, err := c.service.Settings.Watch(channel).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to watch settings", err)
	}
	return ch, nil
}

// StopChannel stops a notification channel.
func (c *CalendarClient) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := c.service.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	if err != nil {
		return calendarError("failed to stop channel", err)
	}
	return nil
}
