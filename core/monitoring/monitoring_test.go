package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureMonitor struct {
	NopMonitor
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}

func TestInitAndCapture(t *testing.T) {
	prev := Current()
	defer Init(prev)

	m := &captureMonitor{}
	Init(m)
	Init(nil)
	assert.Same(t, m, Current())

	CaptureException(nil, nil)
	CaptureException(errors.New("solve infeasible"), map[string]string{"market": "fr-2023"})
	Flush(time.Millisecond)
	assert.Len(t, m.errs, 1)
	assert.Equal(t, "fr-2023", m.tags[0]["market"])
}
