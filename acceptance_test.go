package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/alphasafe/alphasafe-api/models"
	"github.com/alphasafe/alphasafe-api/notifications"
	"github.com/alphasafe/alphasafe-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// browser is an HTTP client that keeps the session cookie between calls
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, server *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: server.URL, client: &http.Client{Jar: jar}}
}

// call sends body as JSON and decodes the data of the envelope into out
func (b *browser) call(method, path string, body, out interface{}) int {
	b.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&envelope))
		require.NoError(b.t, json.Unmarshal(envelope.Data, out))
	}
	return resp.StatusCode
}

// TestInterventionLifecycleAcceptance walks a technician through a full job:
// sign up, register the client, open the intervention, request assistance,
// finish it for invoicing and export it for the billing office.
func TestInterventionLifecycleAcceptance(t *testing.T) {
	s := newTestServer(t, testConfig())
	testutil.CreateTechnician(t, s.db, "Rui Costa", "rui@alphasafe.pt")
	testutil.CreateOfficeTechnician(t, s.db, "Marta Silva", "marta@alphasafe.pt", true)

	server := httptest.NewServer(s.router)
	defer server.Close()
	b := newBrowser(t, server)

	require.Equal(t, http.StatusCreated, b.call(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "rui@alphasafe.pt", "password": "s3cretpass", "first_name": "Rui", "last_name": "Costa",
	}, nil))

	var me models.PublicUser
	require.Equal(t, http.StatusOK, b.call(http.MethodGet, "/api/v1/auth/user", nil, &me))
	assert.Equal(t, "rui@alphasafe.pt", me.Email)

	var client models.Client
	require.Equal(t, http.StatusCreated, b.call(http.MethodPost, "/api/v1/clients", gin.H{
		"name": "Condominio Sol", "nif": "501234567",
	}, &client))

	var intervention models.Intervention
	require.Equal(t, http.StatusCreated, b.call(http.MethodPost, "/api/v1/interventions", gin.H{
		"client_id":       client.ID,
		"service_type":    []string{models.ServiceAlarm, models.ServiceAlarm},
		"equipment_model": "Ajax Hub 2",
		"serial_number":   "SN-0001",
		"technician":      "Rui Costa",
	}, &intervention))
	assert.Equal(t, models.StatusInProgress, intervention.Status)
	assert.Equal(t, []string{models.ServiceAlarm}, intervention.ServiceType)

	requests := s.recorder.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, notifications.KindAssignment, requests[0].Kind)
	s.recorder.Clear()

	path := fmt.Sprintf("/api/v1/interventions/%d", intervention.ID)
	require.Equal(t, http.StatusOK, b.call(http.MethodPatch, path, gin.H{
		"status": models.StatusAssistance, "assistance_date": "2025-09-01T10:00",
	}, &intervention))
	kinds := map[notifications.Channel]notifications.Kind{}
	for _, req := range s.recorder.Requests() {
		kinds[req.Channel] = req.Kind
	}
	assert.Equal(t, notifications.KindAssistance, kinds[notifications.ChannelEmail])
	assert.Equal(t, notifications.KindAssistance, kinds[notifications.ChannelPush])
	s.recorder.Clear()

	require.Equal(t, http.StatusOK, b.call(http.MethodPut, path, gin.H{"status": models.StatusToInvoice}, &intervention))
	recipients := []string{}
	for _, req := range s.recorder.Requests() {
		assert.Equal(t, notifications.KindBilling, req.Kind)
		recipients = append(recipients, req.Recipient.Email)
	}
	assert.ElementsMatch(t, []string{"marta@alphasafe.pt", "faturacao@alphasafe.pt"}, recipients)

	resp, err := b.client.Get(server.URL + "/api/v1/interventions/export?status=To+Invoice")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusConflict, b.call(http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", client.ID), nil, nil),
		"clients with interventions cannot be deleted")

	require.Equal(t, http.StatusOK, b.call(http.MethodPost, "/api/v1/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, b.call(http.MethodGet, "/api/v1/auth/user", nil, nil))
}

// TestLoginAcceptance checks that a fresh browser can sign in with the
// registered credentials and nothing else
func TestLoginAcceptance(t *testing.T) {
	s := newTestServer(t, testConfig())
	server := httptest.NewServer(s.router)
	defer server.Close()

	require.Equal(t, http.StatusCreated, newBrowser(t, server).call(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": "ana@alphasafe.pt", "password": "s3cretpass", "first_name": "Ana", "last_name": "Sousa",
	}, nil))

	b := newBrowser(t, server)
	assert.Equal(t, http.StatusUnauthorized, b.call(http.MethodGet, "/api/v1/clients", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, b.call(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email": "ana@alphasafe.pt", "password": "wrong-password",
	}, nil))
	require.Equal(t, http.StatusOK, b.call(http.MethodPost, "/api/v1/auth/login", gin.H{
		"email": "ana@alphasafe.pt", "password": "s3cretpass",
	}, nil))
	assert.Equal(t, http.StatusOK, b.call(http.MethodGet, "/api/v1/clients", nil, nil))
}
