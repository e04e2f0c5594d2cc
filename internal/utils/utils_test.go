package utils

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "999", Number(999))
	assert.Equal(t, "1,000", Number(1000))
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "-12,345", Number(-12345))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "0s", Duration(500*time.Millisecond))
	assert.Equal(t, "5.2s", Duration(5200*time.Millisecond))
	assert.Equal(t, "3m5.0s", Duration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h15m", Duration(2*time.Hour+15*time.Minute))
}

func TestRate(t *testing.T) {
	assert.Equal(t, "123.45", Rate(123.45))
	assert.Equal(t, "12.34K", Rate(12340))
	assert.Equal(t, "1.50M", Rate(1500000))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "512 B", Bytes(512))
	assert.Equal(t, "1.5 KiB", Bytes(1536))
	assert.Equal(t, "3.0 MiB", Bytes(3<<20))
	assert.Equal(t, "2.0 GiB", Bytes(2<<30))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, "-", Ratio(10, 0))
	assert.Equal(t, "25.0%", Ratio(25, 100))
}

func TestUnpackEngineVersion(t *testing.T) {
	wide := int64(4)<<55 | int64(1)<<47 | int64(1)<<31 | 42
	assert.Equal(t, VersionInfo{Major: 4, Minor: 1, Revision: 1, Build: 42}, UnpackEngineVersion(wide, true))
	assert.Equal(t, "4.1.1.42", FormatEngineVersion(wide, true))

	narrow := int64(3)<<28 | int64(6)<<24 | int64(9)<<16 | 100
	assert.Equal(t, "3.6.9.100", FormatEngineVersion(narrow, false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "..cters.lsf", truncate("Public/Characters.lsf", 11))
}

func TestDisabledProgressIsInert(t *testing.T) {
	p := NewProgress(10, false)
	assert.False(t, p.Enabled())
	p.Increment("a")
	p.Finish()
}

func TestProgressConcurrentIncrement(t *testing.T) {
	p := newProgress(io.Discard, 100)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				p.Increment("entry")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), p.bar.Current())
	p.container.Wait()
}
