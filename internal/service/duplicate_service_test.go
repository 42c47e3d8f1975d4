package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
)

func strPtr(v string) *string { return &v }

func TestFingerprintFileIDWins(t *testing.T) {
	sub := dto.Submission{
		FileUniqueID: strPtr("AgAD-xyz"),
		URL:          strPtr("https://example.com/doc"),
	}
	require.Equal(t, "AgAD-xyz", Fingerprint(sub, "عنوان"))
}

func TestFingerprintURLNormalized(t *testing.T) {
	a := Fingerprint(dto.Submission{URL: strPtr("https://Example.com/Doc/")}, "x")
	b := Fingerprint(dto.Submission{URL: strPtr("  https://example.com/doc  ")}, "y")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestFingerprintTitleFallback(t *testing.T) {
	a := Fingerprint(dto.Submission{}, "محاضرة ١")
	b := Fingerprint(dto.Submission{}, "محاضرة 1")
	c := Fingerprint(dto.Submission{}, "محاضرة 2")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestFingerprintURLBeatsTitle(t *testing.T) {
	withURL := Fingerprint(dto.Submission{URL: strPtr("https://example.com/doc")}, "عنوان")
	titleOnly := Fingerprint(dto.Submission{}, "عنوان")
	require.NotEqual(t, withURL, titleOnly)
}

func TestScopeKeyDistinguishesOptionals(t *testing.T) {
	base := models.MaterialScope{SubjectID: "subj-1", SectionID: "sec-1", ItemTypeID: "it-1"}
	yearID := "year-1"
	withYear := base
	withYear.YearID = &yearID

	require.NotEqual(t, scopeKey("fp", base), scopeKey("fp", withYear))
	require.Equal(t, scopeKey("fp", base), scopeKey("fp", base))
}

func TestDuplicateGuardSerializesSameScope(t *testing.T) {
	guard := NewDuplicateGuard()

	const workers = 16
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := guard.Lock("scope-a")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, workers, counter)

	// All holders released, so the entry is gone.
	guard.mu.Lock()
	defer guard.mu.Unlock()
	require.Empty(t, guard.locks)
}

func TestDuplicateGuardIndependentScopes(t *testing.T) {
	guard := NewDuplicateGuard()

	unlockA := guard.Lock("scope-a")
	done := make(chan struct{})
	go func() {
		unlockB := guard.Lock("scope-b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
