package accnt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddScanAndMigrate(t *testing.T) {
	var a RunAccnt
	a.AddScan(5 * time.Millisecond)
	a.AddMigrate(2 * time.Millisecond)

	snap := a.Fetch()
	assert.Equal(t, int64(5*time.Millisecond), snap.ScanNs)
	assert.Equal(t, int64(2*time.Millisecond), snap.MigrateNs)
}

func TestTimerAddsElapsed(t *testing.T) {
	var a RunAccnt
	done := Timer(a.AddScan)
	time.Sleep(time.Millisecond)
	done()

	assert.Greater(t, a.Fetch().ScanNs, int64(0))
}

func TestAddMerges(t *testing.T) {
	var a, b RunAccnt
	a.AddScan(3 * time.Millisecond)
	b.AddScan(4 * time.Millisecond)
	b.AddMigrate(1 * time.Millisecond)

	a.Add(&b)

	snap := a.Fetch()
	assert.Equal(t, int64(7*time.Millisecond), snap.ScanNs)
	assert.Equal(t, int64(1*time.Millisecond), snap.MigrateNs)
}
