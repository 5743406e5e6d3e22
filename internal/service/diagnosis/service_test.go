package diagnosis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/care-portal/internal/model"
)

func names(results []model.DiagnosisResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Remedy
	}
	return out
}

func TestDiagnose_RankingAndTieBreak(t *testing.T) {
	svc := NewServiceWithRemedies([]model.Remedy{
		{Name: "c", Keywords: []string{"fever"}},
		{Name: "b", Keywords: []string{"fever", "cough"}},
		{Name: "a", Keywords: []string{"fever", "cough", "rash", "chills"}},
		{Name: "alpha", Keywords: []string{"fever"}},
		{Name: "d", Keywords: []string{"rash"}},
		{Name: "e", Keywords: []string{"fever", "sore throat", "nausea"}},
	}, 0)

	got, err := svc.Diagnose(context.Background(), []string{"Fever and COUGH,", "sore-throat"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "e", "a", "alpha", "c"}, names(got))
	assert.Equal(t, 2, got[0].Score)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 0.67, got[1].Confidence)
	assert.Equal(t, []string{"fever", "sore throat"}, got[1].Matched)
	assert.Equal(t, 0.5, got[2].Confidence)
}

func TestDiagnose_BuiltInTable(t *testing.T) {
	got, err := NewService(0).Diagnose(context.Background(), []string{"high fever with headache"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Belladonna", "Aconitum napellus", "Bryonia alba", "Gelsemium", "Nux vomica"}, names(got))
	assert.Equal(t, 0.33, got[0].Confidence)
	assert.Equal(t, 0.17, got[1].Confidence)
	assert.Len(t, got, MaxResults)
}

func TestDiagnose_IsDeterministic(t *testing.T) {
	svc := NewService(0)
	first, err := svc.Diagnose(context.Background(), []string{"anxiety restlessness thirst"})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := svc.Diagnose(context.Background(), []string{"thirst", "anxiety", "restlessness"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDiagnose_NoMatch(t *testing.T) {
	got, err := NewService(0).Diagnose(context.Background(), []string{"xyzzy"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiagnose_NoSymptoms(t *testing.T) {
	for _, in := range [][]string{nil, {}, {"", "  ", "!!"}} {
		_, err := NewService(0).Diagnose(context.Background(), in)
		assert.ErrorIs(t, err, ErrNoSymptoms)
	}
}

func TestDiagnose_DelayHonoursCancellation(t *testing.T) {
	svc := NewService(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Diagnose(ctx, []string{"fever"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRemedies_ReturnsCopy(t *testing.T) {
	r := Remedies()
	r[0].Keywords[0] = "changed"
	assert.NotEqual(t, "changed", Remedies()[0].Keywords[0])
}
