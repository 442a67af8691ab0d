package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thiagocaliman/youtube-live-chat-openai/bot"
)

type fixedStatus struct {
	snap bot.StatusSnapshot
}

func (f fixedStatus) Status() bot.StatusSnapshot { return f.snap }

func pollingStatus() fixedStatus {
	return fixedStatus{snap: bot.StatusSnapshot{
		State:       "polling",
		VideoID:     "vid123",
		BotName:     "Janete",
		EconomyMode: true,
		QuotaUsage:  9200,
		QuotaBudget: 10000,
	}}
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewMux(pollingStatus()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestReadyzFollowsBotState(t *testing.T) {
	cases := []struct {
		state string
		want  int
	}{
		{"polling", http.StatusOK},
		{"idle", http.StatusServiceUnavailable},
		{"stopped", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(NewMux(fixedStatus{snap: bot.StatusSnapshot{State: tc.state}}))
		resp, err := http.Get(srv.URL + "/readyz")
		if err != nil {
			srv.Close()
			t.Fatal(err)
		}
		if resp.StatusCode != tc.want {
			t.Errorf("readyz in state %q = %d, want %d", tc.state, resp.StatusCode, tc.want)
		}
		resp.Body.Close()
		srv.Close()
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	srv := httptest.NewServer(NewMux(pollingStatus()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	var snap bot.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "polling" || snap.QuotaUsage != 9200 || !snap.EconomyMode {
		t.Errorf("status snapshot = %+v", snap)
	}
}

func TestCorrelationIDEchoedAndGenerated(t *testing.T) {
	srv := httptest.NewServer(NewMux(pollingStatus()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-ID"); got != "corr-42" {
		t.Errorf("correlation id = %q, want echo of request header", got)
	}

	resp2, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Correlation-ID") == "" {
		t.Error("correlation id not generated when absent")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(NewMux(pollingStatus()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}
