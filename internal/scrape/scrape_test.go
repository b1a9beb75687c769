package scrape

import "testing"

const loginPage = `<html><body>
<form id="fm1" action="/cas/login" method="post">
  <input type="text" name="username" value="" />
  <input type="password" name="password" value="" />
  <input type="hidden" name="lt" value="LT-123" />
  <input type="hidden" name="execution" value="e1s1" />
  <input type="hidden" name="_eventId_submit" value="submit" />
  <input type="hidden" name="lt" value="LT-DUP" />
</form>
</body></html>`

func TestFormValues(t *testing.T) {
	got, err := FormValues(loginPage, "#fm1")
	if err != nil {
		t.Fatalf("FormValues: %v", err)
	}
	if got["lt"] != "LT-123" {
		t.Fatalf("first occurrence must win, got lt=%q", got["lt"])
	}
	if got["execution"] != "e1s1" || got["_eventId_submit"] != "submit" {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestFormValues_MissingSelector(t *testing.T) {
	if _, err := FormValues(loginPage, "#no-such-form"); err == nil {
		t.Fatalf("expected error for missing selector")
	}
}

func TestRequire(t *testing.T) {
	vals := map[string]string{"lt": "LT-1", "execution": ""}
	if err := Require(vals, "lt"); err != nil {
		t.Fatalf("lt present: %v", err)
	}
	if err := Require(vals, "lt", "execution"); err == nil {
		t.Fatalf("expected error for empty execution")
	}
	if err := Require(vals, "missing"); err == nil {
		t.Fatalf("expected error for absent key")
	}
}

const widgetPage = `<html><head>
<script>
  window.onload = function() {
    Duo.init({'host': 'api-xxxx.example.com', 'sig_request': 'TX|abc:APP|def', 'post_argument': 'signedDuoResponse'});
  };
</script>
</head><body></body></html>`

func TestInitializerArg(t *testing.T) {
	arg, err := InitializerArg(widgetPage, "Duo.init")
	if err != nil {
		t.Fatalf("InitializerArg: %v", err)
	}
	want := `{"host": "api-xxxx.example.com", "sig_request": "TX|abc:APP|def", "post_argument": "signedDuoResponse"}`
	if arg != want {
		t.Fatalf("normalized arg mismatch:\n got: %s\nwant: %s", arg, want)
	}
}

func TestInitializerArg_NotFound(t *testing.T) {
	if _, err := InitializerArg(loginPage, "Duo.init"); err == nil {
		t.Fatalf("expected error when initializer is absent")
	}
}

func TestInitializerArg_Unbalanced(t *testing.T) {
	page := `<script>Duo.init({'host': 'x'</script>`
	if _, err := InitializerArg(page, "Duo.init"); err == nil {
		t.Fatalf("expected error for unbalanced object literal")
	}
}
