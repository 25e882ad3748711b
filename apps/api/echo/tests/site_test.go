package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/harmony/core/registration"
)

func registrationForm() url.Values {
	return url.Values{
		"student_name": {"Amani"},
		"age":          {"14"},
		"email":        {"amani@test.test"},
		"phone":        {"0810 000 000"},
		"instrument":   {"violin"},
		"experience":   {"some-experience"},
		"goals":        {"Play in an orchestra"},
	}
}

func TestSite_home(t *testing.T) {
	env.Reset()

	rec := newBrowser().get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Music Speaks")
	assert.Contains(t, body, "Register for Lessons")
	assert.Contains(t, body, `<option value="saxophone">Saxophone</option>`)
	assert.Contains(t, body, `action="/contact"`)
}

func TestSite_register(t *testing.T) {
	env.Reset()
	b := newBrowser()

	t.Run("invalid submission is not stored", func(t *testing.T) {
		form := registrationForm()
		form.Set("instrument", "kazoo")
		form.Del("phone")

		rec := b.post("/register", form)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "please select an instrument we teach")
		assert.Contains(t, body, "this field is required")
		assert.Contains(t, body, `value="Amani"`, "entered values are kept")

		regs, err := env.RegistrationSvc.Query(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, regs)
	})

	t.Run("valid submission", func(t *testing.T) {
		rec := b.post("/register", registrationForm())
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/#register", rec.Header().Get("Location"))

		regs, err := env.RegistrationSvc.Query(context.Background(), "")
		require.NoError(t, err)
		if assert.Len(t, regs, 1) {
			assert.Equal(t, "violin", regs[0].Instrument)
			assert.Equal(t, registration.StatusPending, regs[0].Status)
			assert.Equal(t, "Play in an orchestra", regs[0].Goals.String)
		}

		rec = b.get("/")
		assert.Contains(t, rec.Body.String(), "Registration Submitted!")

		// flashes are shown once
		rec = b.get("/")
		assert.NotContains(t, rec.Body.String(), "Registration Submitted!")
	})
}

func TestSite_contact(t *testing.T) {
	env.Reset()
	b := newBrowser()

	rec := b.post("/contact", url.Values{"name": {"Zawadi"}, "email": {"bad"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email must be a valid email address")

	rec = b.post("/contact", url.Values{
		"name":    {"Zawadi"},
		"email":   {"z@test.test"},
		"subject": {"Weekend classes"},
		"message": {"Are there any spots left?"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#contact", rec.Header().Get("Location"))

	msgs, err := env.MessageSvc.Query(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	assert.Contains(t, b.get("/").Body.String(), "Message Sent!")
}

func TestSite_guards(t *testing.T) {
	env.Reset()
	admin := env.CreateUser(t, "Admin", "admin@test.test", true)

	anonymous := newBrowser()
	signedIn := newBrowser()
	rec := signedIn.post("/auth", url.Values{"email": {admin.Email}, "password": {"Tr3ble&Bass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	tests := []struct {
		name         string
		browser      *browser
		path         string
		wantCode     int
		wantLocation string
	}{
		{name: "anonymous/home", browser: anonymous, path: "/", wantCode: http.StatusOK},
		{name: "anonymous/auth", browser: anonymous, path: "/auth", wantCode: http.StatusOK},
		{name: "anonymous/admin", browser: anonymous, path: "/admin", wantCode: http.StatusSeeOther, wantLocation: "/auth"},
		{name: "authenticated/home", browser: signedIn, path: "/", wantCode: http.StatusOK},
		{name: "authenticated/auth", browser: signedIn, path: "/auth", wantCode: http.StatusSeeOther, wantLocation: "/admin"},
		{name: "authenticated/admin", browser: signedIn, path: "/admin", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.browser.get(tt.path)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}

	t.Run("anonymous actions", func(t *testing.T) {
		reg := env.CreateRegistration(t, "Amani", "piano")
		rec := anonymous.post("/admin/registrations/"+reg.ID+"/status", url.Values{"status": {"approved"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/auth", rec.Header().Get("Location"))

		got, err := env.RegistrationSvc.Get(context.Background(), reg.ID)
		require.NoError(t, err)
		assert.Equal(t, registration.StatusPending, got.Status)
	})
}

func TestSite_signIn(t *testing.T) {
	env.Reset()
	admin := env.CreateUser(t, "Admin", "admin@test.test", true)
	naughty := env.CreateUser(t, "N Dog", "ndog@test.test", false)

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantText string
	}{
		{name: "missing", form: url.Values{}, wantCode: http.StatusBadRequest, wantText: "Please enter your email and password."},
		{name: "wrong password", form: url.Values{"email": {admin.Email}, "password": {"nope"}}, wantCode: http.StatusBadRequest, wantText: "Invalid email or password."},
		{name: "deactivated", form: url.Values{"email": {naughty.Email}, "password": {"Tr3ble&Bass"}}, wantCode: http.StatusForbidden, wantText: "This account has been deactivated."},
		{name: "signed in", form: url.Values{"email": {admin.Email}, "password": {"Tr3ble&Bass"}}, wantCode: http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newBrowser().post("/auth", tt.form)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantText != "" {
				assert.Contains(t, rec.Body.String(), tt.wantText)
			} else {
				assert.Equal(t, "/admin", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSite_dashboard(t *testing.T) {
	env.Reset()
	admin := env.CreateUser(t, "Admin", "admin@test.test", true)
	piano := env.CreateRegistration(t, "Amani", "piano")
	guitar := env.CreateRegistration(t, "Baraka", "guitar")
	msg := env.CreateMessage(t, "Zawadi", "Weekend classes")

	b := newBrowser()
	require.Equal(t, http.StatusSeeOther, b.post("/auth", url.Values{"email": {admin.Email}, "password": {"Tr3ble&Bass"}}).Code)

	t.Run("lists everything", func(t *testing.T) {
		body := b.get("/admin").Body.String()
		assert.Contains(t, body, "Amani")
		assert.Contains(t, body, "Baraka")
		assert.Contains(t, body, "Weekend classes")
		assert.Contains(t, body, "Signed in as Admin")
	})

	t.Run("filters", func(t *testing.T) {
		body := b.get("/admin?q=guit").Body.String()
		assert.Contains(t, body, "Baraka")
		assert.NotContains(t, body, "Amani")
		assert.NotContains(t, body, "Weekend classes")
	})

	t.Run("approve", func(t *testing.T) {
		rec := b.post("/admin/registrations/"+piano.ID+"/status", url.Values{"status": {"approved"}, "q": {"ama"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/admin?q=ama", rec.Header().Get("Location"))

		got, err := env.RegistrationSvc.Get(context.Background(), piano.ID)
		require.NoError(t, err)
		assert.Equal(t, registration.StatusApproved, got.Status)

		other, err := env.RegistrationSvc.Get(context.Background(), guitar.ID)
		require.NoError(t, err)
		assert.Equal(t, registration.StatusPending, other.Status)

		body := b.get("/admin?view=pending").Body.String()
		assert.Contains(t, body, "Registration approved")
		assert.NotContains(t, body, `data-id="`+piano.ID+`"`)
		assert.Contains(t, body, `data-id="`+guitar.ID+`"`)
	})

	t.Run("redundant status is ignored", func(t *testing.T) {
		before, err := env.RegistrationSvc.Get(context.Background(), piano.ID)
		require.NoError(t, err)

		rec := b.post("/admin/registrations/"+piano.ID+"/status", url.Values{"status": {"approved"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)

		after, err := env.RegistrationSvc.Get(context.Background(), piano.ID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("unknown registration", func(t *testing.T) {
		rec := b.post("/admin/registrations/nope/status", url.Values{"status": {"rejected"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, b.get("/admin").Body.String(), "Failed to update registration status")
	})

	t.Run("mark read", func(t *testing.T) {
		rec := b.post("/admin/messages/"+msg.ID+"/read", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)

		got, err := env.MessageSvc.Get(context.Background(), msg.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
		assert.NotContains(t, b.get("/admin").Body.String(), "Mark as read")
	})
}

func TestSite_signOut(t *testing.T) {
	env.Reset()
	admin := env.CreateUser(t, "Admin", "admin@test.test", true)

	b := newBrowser()
	require.Equal(t, http.StatusSeeOther, b.post("/auth", url.Values{"email": {admin.Email}, "password": {"Tr3ble&Bass"}}).Code)
	stale := newBrowser()
	for name, c := range b.cookies {
		stale.cookies[name] = c
	}

	rec := b.post("/admin/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))

	rec = b.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "cookie cleared")

	rec = stale.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code, "token revoked")
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
}

func TestMetrics(t *testing.T) {
	env.Reset()

	req, rec := newRequest(http.MethodPost, "/v1/messages", marshallObj(t, map[string]string{
		"name": "Zawadi", "email": "z@test.test", "subject": "Hi", "message": "Hello",
	}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `harmony_submissions_total{kind="message"}`)
	assert.Contains(t, body, `harmony_http_requests_total{code="201",method="POST",route="/v1/messages"}`)
	assert.Contains(t, body, "go_goroutines")
}
