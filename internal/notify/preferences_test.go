package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"realtime-service/internal/models"
)

func TestAllowedGatesPerType(t *testing.T) {
	tests := []struct {
		name    string
		disable func(*models.Preferences)
		typ     models.NotificationType
		want    bool
	}{
		{"job alert disabled", func(p *models.Preferences) { p.JobAlerts = false }, models.NotifyJobAlert, false},
		{"job alert enabled", func(p *models.Preferences) {}, models.NotifyJobAlert, true},
		{"match disabled", func(p *models.Preferences) { p.MatchingAlerts = false }, models.NotifyMatchFound, false},
		{"event reminder disabled", func(p *models.Preferences) { p.EventReminders = false }, models.NotifyEventReminder, false},
		{"collaboration invite disabled", func(p *models.Preferences) { p.CollaborationInvites = false }, models.NotifyCollaborationInvite, false},
		{"messages have no opt-out", func(p *models.Preferences) {
			p.JobAlerts = false
			p.MatchingAlerts = false
			p.EventReminders = false
			p.CollaborationInvites = false
		}, models.NotifyMessage, true},
		{"system has no opt-out", func(p *models.Preferences) { p.JobAlerts = false }, models.NotifySystem, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := models.DefaultPreferences("u1")
			tt.disable(&prefs)
			assert.Equal(t, tt.want, Allowed(prefs, tt.typ))
		})
	}
}

func TestEventNameMapping(t *testing.T) {
	assert.Equal(t, models.EvNewJob, eventName(models.NotifyJobAlert))
	assert.Equal(t, models.EvMatchFound, eventName(models.NotifyMatchFound))
	assert.Equal(t, models.EvEventReminder, eventName(models.NotifyEventReminder))
	assert.Equal(t, models.EvCollaborationInv, eventName(models.NotifyCollaborationInvite))
	assert.Equal(t, models.EvNotification, eventName(models.NotifyMessage))
	assert.Equal(t, models.EvNotification, eventName(models.NotifySystem))
}
