package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfchat-be/pkg/events"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "session.PDF_ATTACHED", Subject(events.TypePDFAttached))
	assert.Equal(t, "session.SESSION_EVICTED", Subject(events.TypeSessionEvicted))
}
