// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Progress events
	EventXPGained      EventType = "progress.xp_gained"
	EventLevelUp       EventType = "progress.level_up"
	EventStreakUpdated EventType = "progress.streak_updated"
	EventStreakBroken  EventType = "progress.streak_broken"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"

	// Learning path events
	EventPathCreated     EventType = "learningpath.created"
	EventPathDeleted     EventType = "learningpath.deleted"
	EventModuleCompleted EventType = "learningpath.module_completed"
	EventPathCompleted   EventType = "learningpath.completed"
	EventLessonOpened    EventType = "learningpath.lesson_opened"
	EventLessonGenerated EventType = "learningpath.lesson_generated"

	// Leaderboard events
	EventLeaderboardRebuilt EventType = "leaderboard.rebuilt"

	// System events
	EventReminderSent EventType = "system.reminder_sent"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted whenever the ledger credits XP to a user.
type XPGainedEvent struct {
	BaseEvent
	Amount  int    `json:"amount"`
	TotalXP int    `json:"total_xp"`
	Reason  string `json:"reason"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":   e.Amount,
		"total_xp": e.TotalXP,
		"reason":   e.Reason,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, totalXP int, reason string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		Amount:    amount,
		TotalXP:   totalXP,
		Reason:    reason,
	}
}

// LevelUpEvent is emitted when the derived level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
	TotalXP  int `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// StreakUpdatedEvent is emitted when a streak transition changes the counter.
type StreakUpdatedEvent struct {
	BaseEvent
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, current, longest int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID),
		CurrentStreak: current,
		LongestStreak: longest,
	}
}

// StreakBrokenEvent is emitted when a gap of two or more days resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int `json:"previous_streak"`
	DaysMissed     int `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a user earns an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Rarity        string `json:"rarity"`
	XPReward      int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"rarity":         e.Rarity,
		"xp_reward":      e.XPReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, rarity string, xpReward int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		AchievementID: achievementID,
		Rarity:        rarity,
		XPReward:      xpReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Path Events
// ═══════════════════════════════════════════════════════════════════════════

// ModuleCompletedEvent is emitted when the frontier advances by one module.
type ModuleCompletedEvent struct {
	BaseEvent
	UserID      string  `json:"user_id"`
	ModuleIndex int     `json:"module_index"`
	Progress    float64 `json:"progress"`
}

// Payload implements Event interface.
func (e ModuleCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"module_index": e.ModuleIndex,
		"progress":     e.Progress,
	}
}

// NewModuleCompletedEvent creates a new ModuleCompletedEvent.
func NewModuleCompletedEvent(pathID, userID string, moduleIndex int, progress float64) ModuleCompletedEvent {
	return ModuleCompletedEvent{
		BaseEvent:   NewBaseEvent(EventModuleCompleted, pathID),
		UserID:      userID,
		ModuleIndex: moduleIndex,
		Progress:    progress,
	}
}

// PathCompletedEvent is emitted when the last module of a path is completed.
type PathCompletedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	ModuleCount int    `json:"module_count"`
}

// Payload implements Event interface.
func (e PathCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"module_count": e.ModuleCount,
	}
}

// NewPathCompletedEvent creates a new PathCompletedEvent.
func NewPathCompletedEvent(pathID, userID string, moduleCount int) PathCompletedEvent {
	return PathCompletedEvent{
		BaseEvent:   NewBaseEvent(EventPathCompleted, pathID),
		UserID:      userID,
		ModuleCount: moduleCount,
	}
}

// LessonGeneratedEvent is emitted when lesson content is cached for a module.
type LessonGeneratedEvent struct {
	BaseEvent
	ModuleIndex int  `json:"module_index"`
	Fallback    bool `json:"fallback"`
}

// Payload implements Event interface.
func (e LessonGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"module_index": e.ModuleIndex,
		"fallback":     e.Fallback,
	}
}

// NewLessonGeneratedEvent creates a new LessonGeneratedEvent.
func NewLessonGeneratedEvent(pathID string, moduleIndex int, fallback bool) LessonGeneratedEvent {
	return LessonGeneratedEvent{
		BaseEvent:   NewBaseEvent(EventLessonGenerated, pathID),
		ModuleIndex: moduleIndex,
		Fallback:    fallback,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish publishes an event to all subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
