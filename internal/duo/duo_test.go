package duo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	flowerrors "github.com/dropDatabas3/casper/internal/flow/errors"
	"github.com/dropDatabas3/casper/internal/session"
)

func TestSplitSignedRequest(t *testing.T) {
	duoSig, appSig, err := SplitSignedRequest("TX|abc|123:APP|def|456")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if duoSig != "TX|abc|123" || appSig != "APP|def|456" {
		t.Fatalf("got %q / %q", duoSig, appSig)
	}

	// el primer ':' manda, el resto queda en appSig
	duoSig, appSig, err = SplitSignedRequest("A:B:C")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if duoSig != "A" || appSig != "B:C" {
		t.Fatalf("first-colon split broken: %q / %q", duoSig, appSig)
	}

	for _, bad := range []string{"", "nocolon", ":lead", "trail:"} {
		if _, _, err := SplitSignedRequest(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseBootstrap(t *testing.T) {
	page := `<html><script>
	  Duo.init({'host': 'api-xxxx.example.com', 'sig_request': 'TX|abc:APP|def', 'post_argument': 'signedDuoResponse'});
	</script></html>`

	bp, err := ParseBootstrap(page)
	if err != nil {
		t.Fatalf("ParseBootstrap: %v", err)
	}
	if bp.Host != "api-xxxx.example.com" || bp.DuoSignature != "TX|abc" ||
		bp.AppSignature != "APP|def" || bp.PostArgument != "signedDuoResponse" {
		t.Fatalf("unexpected params: %+v", bp)
	}
}

func TestParseBootstrap_NoColon(t *testing.T) {
	page := `<script>Duo.init({'host': 'h', 'sig_request': 'sincolon', 'post_argument': 'x'});</script>`
	_, err := ParseBootstrap(page)
	if !errors.Is(err, flowerrors.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

// fakeBroker sirve /frame/prompt y /frame/status con respuestas programadas.
type fakeBroker struct {
	promptStat  string
	statuses    []string // status_code por intento, el último se repite
	cookie      string
	promptCalls int
	statusCalls int
}

func (f *fakeBroker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(promptPath, func(w http.ResponseWriter, r *http.Request) {
		f.promptCalls++
		_ = r.ParseForm()
		if r.PostForm.Get("days_to_block") != "None" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"stat": %q, "response": {"txid": "tx-1"}}`, f.promptStat)
	})
	mux.HandleFunc(statusPath, func(w http.ResponseWriter, r *http.Request) {
		i := f.statusCalls
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		f.statusCalls++
		st := f.statuses[i]
		if st == "allow" {
			fmt.Fprintf(w, `{"response": {"status_code": "allow", "cookie": %q}}`, f.cookie)
			return
		}
		fmt.Fprintf(w, `{"response": {"status_code": %q}}`, st)
	})
	return mux
}

type countingEvents struct {
	pushed  int
	allowed int
	last    PollResult
}

func (e *countingEvents) OnPushed(PollResult)    { e.pushed++ }
func (e *countingEvents) OnAllowed(r PollResult) { e.allowed++; e.last = r }

func newBrokerClient(t *testing.T, f *fakeBroker) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	sess, err := session.New(session.Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return New(sess, srv.URL), srv.Close
}

func TestPoll_PushedThenAllow(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"pushed", "pushed", "allow"}, cookie: "C1"}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	ev := &countingEvents{}
	res, err := c.Poll(context.Background(), "sid-1", "tx-1", PollOptions{
		MaxRetries: 10,
		Interval:   time.Millisecond,
		Events:     ev,
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Cookie != "C1" {
		t.Fatalf("cookie=%q", res.Cookie)
	}
	if broker.statusCalls != 3 {
		t.Fatalf("status calls=%d, want 3", broker.statusCalls)
	}
	if ev.pushed != 2 || ev.allowed != 1 {
		t.Fatalf("callbacks pushed=%d allowed=%d", ev.pushed, ev.allowed)
	}
	if ev.last.Cookie != "C1" {
		t.Fatalf("OnAllowed result cookie=%q", ev.last.Cookie)
	}
}

func TestPoll_BudgetExhausted(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"pushed"}}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	ev := &countingEvents{}
	_, err := c.Poll(context.Background(), "sid-1", "tx-1", PollOptions{
		MaxRetries: 3,
		Interval:   time.Millisecond,
		Events:     ev,
	})
	if !errors.Is(err, flowerrors.ErrAuthTimeout) {
		t.Fatalf("expected AUTH_TIMEOUT, got %v", err)
	}
	if broker.statusCalls != 3 {
		t.Fatalf("status calls=%d, want exactly 3", broker.statusCalls)
	}
	if ev.pushed != 3 || ev.allowed != 0 {
		t.Fatalf("callbacks pushed=%d allowed=%d", ev.pushed, ev.allowed)
	}
}

func TestPoll_UnknownStatusKeepsRetrying(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"deny", "deny", "allow"}, cookie: "C2"}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	res, err := c.Poll(context.Background(), "sid-1", "tx-1", PollOptions{
		MaxRetries: 5,
		Interval:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("default policy must retry unknown statuses: %v", err)
	}
	if res.Cookie != "C2" || broker.statusCalls != 3 {
		t.Fatalf("cookie=%q calls=%d", res.Cookie, broker.statusCalls)
	}
}

func TestPoll_ConfiguredTerminalStatus(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"deny"}}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	_, err := c.Poll(context.Background(), "sid-1", "tx-1", PollOptions{
		MaxRetries:       5,
		Interval:         time.Millisecond,
		TerminalStatuses: []string{"deny", "timeout"},
	})
	if !errors.Is(err, flowerrors.ErrProtocolRejected) {
		t.Fatalf("expected PROTOCOL_REJECTED, got %v", err)
	}
	if broker.statusCalls != 1 {
		t.Fatalf("terminal status must stop polling, calls=%d", broker.statusCalls)
	}
}

func TestPoll_AllowWithoutCookie(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"allow"}, cookie: ""}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	_, err := c.Poll(context.Background(), "sid-1", "tx-1", PollOptions{MaxRetries: 2, Interval: time.Millisecond})
	if !errors.Is(err, flowerrors.ErrMalformedResponse) {
		t.Fatalf("allow sin cookie debe fallar, got %v", err)
	}
}

func TestPoll_ContextCancelled(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"pushed"}}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Poll(ctx, "sid-1", "tx-1", PollOptions{
		MaxRetries: 10,
		Interval:   time.Hour, // el cancel corta la pausa
	})
	if !errors.Is(err, flowerrors.ErrCancelled) {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
}

func TestPrompt_Rejected(t *testing.T) {
	broker := &fakeBroker{promptStat: "FAIL", statuses: []string{"pushed"}}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	_, err := c.Prompt(context.Background(), ChallengeContext{SID: "s", Factor: "Duo Push", Device: "phone1"})
	if !errors.Is(err, flowerrors.ErrProtocolRejected) {
		t.Fatalf("expected PROTOCOL_REJECTED, got %v", err)
	}
	if broker.statusCalls != 0 {
		t.Fatalf("no status polling may happen after rejection, calls=%d", broker.statusCalls)
	}
}

func TestPrompt_OK(t *testing.T) {
	broker := &fakeBroker{promptStat: "OK", statuses: []string{"pushed"}}
	c, stop := newBrokerClient(t, broker)
	defer stop()

	txid, err := c.Prompt(context.Background(), ChallengeContext{SID: "s", Factor: "Duo Push", Device: "phone1"})
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if txid != "tx-1" {
		t.Fatalf("txid=%q", txid)
	}
}

func TestBootstrap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(authFramePath, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("v") != protocolVersion || r.PostForm.Get("tx") == "" || r.PostForm.Get("parent") == "" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `<form id="login-form">
		  <input type="hidden" name="sid" value="sid-42" />
		  <input type="hidden" name="preferred_factor" value="Duo Push" />
		  <input type="hidden" name="preferred_device" value="phone1" />
		</form>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, err := session.New(session.Options{})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	c := New(sess, srv.URL)

	cc, err := c.Bootstrap(context.Background(), "TX|abc", "https://idp.example.com/cas/login")
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if cc.SID != "sid-42" || cc.Factor != "Duo Push" || cc.Device != "phone1" {
		t.Fatalf("unexpected context: %+v", cc)
	}
}

func TestBootstrap_MissingSID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(authFramePath, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<form id="login-form"><input type="hidden" name="other" value="x" /></form>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sess, _ := session.New(session.Options{})
	c := New(sess, srv.URL)

	_, err := c.Bootstrap(context.Background(), "TX|abc", "parent")
	if !errors.Is(err, flowerrors.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
