package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBatchDoneCountsFailures(t *testing.T) {
	BatchDone("code", 10, time.Millisecond, nil)
	BatchDone("code", 5, time.Millisecond, errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.batchesSent.WithLabelValues("code")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesFailed.WithLabelValues("code")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.vectorsSent.WithLabelValues("code")))
}

func TestImportFinished(t *testing.T) {
	m.init()
	before := testutil.ToFloat64(m.importsFailed)
	ImportFinished(time.Now(), errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(m.importsFailed))
}
