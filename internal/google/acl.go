package google

import (
	"context"

	"google.golang.org/api/calendar/v3"
)

// ListACL returns the access control rules of a calendar.
func (c *CalendarClient) ListACL(ctx context.Context, calendarID string) ([]*calendar.AclRule, error) {
	var rules []*calendar.AclRule
	err := c.service.Acl.List(calendarID).Pages(ctx, func(page *calendar.Acl) error {
		rules = append(rules, page.Items...)
		return nil
	})
	if err != nil {
		return nil, calendarError("failed to list access rules", err)
	}
	return rules, nil
}

// ShareCalendar grants role to the scope (a user, group or domain).
func (c *CalendarClient) ShareCalendar(ctx context.Context, calendarID, scopeType, scopeValue, role string) (*calendar.AclRule, error) {
	rule := &calendar.AclRule{
		Role:  role,
		Scope: &calendar.AclRuleScope{Type: scopeType, Value: scopeValue},
	}
	created, err := c.service.Acl.Insert(calendarID, rule).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to create access rule", err)
	}
	return created, nil
}

// UpdateACL changes the role of an existing rule.
func (c *CalendarClient) UpdateACL(ctx context.Context, calendarID, ruleID, role string) (*calendar.AclRule, error) {
	updated, err := c.service.Acl.Patch(calendarID, ruleID, &calendar.AclRule{Role: role}).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to update access rule", err)
	}
	return updated, nil
}

// DeleteACL removes an access rule.
func (c *CalendarClient) DeleteACL(ctx context.Context, calendarID, ruleID string) error {
	if err := c.service.Acl.Delete(calendarID, ruleID).Context(ctx).Do(); err != nil {
		return calendarError("failed to delete access rule", err)
	}
	return nil
}

// WatchACL opens a notification channel for access rule changes.
func (c *CalendarClient) WatchACL(ctx context.Context, calendarID string, channel *calendar.Channel) (*calendar.Channel, error) {
	ch, err := c.service.Acl.Watch(calendarID, channel).Context(ctx).Do()
	if err != nil {
		return nil, calendarError("failed to watch access rules", err)
	}
	return ch, nil
}
