package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/pagespeed"
)

func newSpeedServer(t *testing.T, score float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"lighthouseResult":{"categories":{"performance":{"score":%v}}}}`, score)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPerformance_HTTPSPass(t *testing.T) {
	t.Parallel()

	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer tlsSrv.Close()

	speedSrv := newSpeedServer(t, 0.9)
	speed := pagespeed.New(pagespeed.Config{Endpoint: speedSrv.URL, APIKey: "k"}, zap.NewNop())
	a := NewPerformance(speed, tlsSrv.Client(), zap.NewNop())

	got := a.Analyze(context.Background(), parseDoc(t, "<html></html>"), tlsSrv.URL)
	https := findCheck(t, got, audit.CheckHTTPS)
	require.True(t, https.Passed)
	require.Equal(t, audit.ScorePass, https.Score)

	// 0.7*90 + 0.3*100 = 93
	require.Equal(t, 93, got.Score)
}

func TestPerformance_HTTPSchemeFails(t *testing.T) {
	t.Parallel()

	speedSrv := newSpeedServer(t, 1.0)
	speed := pagespeed.New(pagespeed.Config{Endpoint: speedSrv.URL, APIKey: "k"}, zap.NewNop())
	a := NewPerformance(speed, &http.Client{}, zap.NewNop())

	got := a.Analyze(context.Background(), parseDoc(t, "<html></html>"), "http://example.test")
	https := findCheck(t, got, audit.CheckHTTPS)
	require.False(t, https.Passed)
	require.Equal(t, audit.ScoreFail, https.Score)

	// 0.7*100 + 0.3*0 = 70
	require.Equal(t, 70, got.Score)
}

func TestPerformance_NeutralSpeedWithoutAPIKey(t *testing.T) {
	t.Parallel()

	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer tlsSrv.Close()

	speed := pagespeed.New(pagespeed.Config{Endpoint: "https://unused.test"}, zap.NewNop())
	a := NewPerformance(speed, tlsSrv.Client(), zap.NewNop())

	got := a.Analyze(context.Background(), parseDoc(t, "<html></html>"), tlsSrv.URL)
	ps := findCheck(t, got, audit.CheckPageSpeed)
	require.Equal(t, pagespeed.NeutralScore, ps.Score)
	require.True(t, ps.Passed, "neutral score sits exactly on the pass threshold")

	// 0.7*50 + 0.3*100 = 65
	require.Equal(t, 65, got.Score)
}

func TestPerformance_SpeedScoreNotBinarized(t *testing.T) {
	t.Parallel()

	speedSrv := newSpeedServer(t, 0.43)
	speed := pagespeed.New(pagespeed.Config{Endpoint: speedSrv.URL, APIKey: "k"}, zap.NewNop())
	a := NewPerformance(speed, &http.Client{}, zap.NewNop())

	got := a.Analyze(context.Background(), parseDoc(t, "<html></html>"), "http://example.test")
	ps := findCheck(t, got, audit.CheckPageSpeed)
	require.Equal(t, 43, ps.Score)
	require.False(t, ps.Passed)
}
