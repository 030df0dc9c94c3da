package ussdrt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_PostStoresResult(t *testing.T) {
	var got map[string]any
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		token = r.Header.Get("X-Token")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"balance": {"amount": 420}}`))
	}))
	defer srv.Close()

	rt := testRuntime()
	sess := testSession("api")
	sess.InputValues["account"] = "A-1"

	reply := rt.Call(context.Background(), sess, APIIntegration{
		Method:         "POST",
		URL:            srv.URL,
		Headers:        map[string]string{"X-Token": "t-{{account}}"},
		DefaultData:    `{"channel": "ussd", "account": "default"}`,
		ResultVariable: "acct",
		NextStep:       "show",
		SuccessMessage: "Balance {{acct.balance.amount}}",
	})

	assert.Equal(t, Con("Balance 420"), reply)
	assert.Equal(t, "show", sess.CurrentStep)
	assert.Equal(t, "t-A-1", token)
	assert.Equal(t, map[string]any{"channel": "ussd", "account": "A-1"}, got)
}

func TestCall_GetSendsQueryAndEscapesURL(t *testing.T) {
	var query, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("pin")
		path = r.URL.Query().Get("who")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt := testRuntime()
	sess := testSession("api")
	sess.InputValues["pin"] = "12 34"
	sess.InputValues["name"] = "a&b"

	reply := rt.Call(context.Background(), sess, APIIntegration{URL: srv.URL + "/lookup?who={{name}}", ResultVariable: "r", NextStep: "next"})

	assert.Equal(t, "API call successful. Proceeding...", reply.Text)
	assert.Equal(t, "12 34", query)
	assert.Equal(t, "a&b", path)
	assert.Nil(t, sess.APIResponses["r"])
	assert.Contains(t, sess.APIResponses, "r")
}

func TestCall_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bad":
			http.Error(w, "nope", http.StatusBadGateway)
		case "/garbage":
			_, _ = w.Write([]byte("<html>"))
		}
	}))
	defer srv.Close()

	rt := testRuntime()

	t.Run("status routes to error step", func(t *testing.T) {
		sess := testSession("api")
		reply := rt.Call(context.Background(), sess, APIIntegration{URL: srv.URL + "/bad", NextStep: "ok", ErrorNextStep: "oops"})
		assert.Equal(t, Con("Service error. Please try again."), reply)
		assert.Equal(t, "oops", sess.CurrentStep)
	})

	t.Run("undecodable body keeps step without error route", func(t *testing.T) {
		sess := testSession("api")
		reply := rt.Call(context.Background(), sess, APIIntegration{URL: srv.URL + "/garbage", NextStep: "ok", ErrorMessage: "Try later"})
		assert.Equal(t, Con("Try later"), reply)
		assert.Equal(t, "api", sess.CurrentStep)
	})

	t.Run("query without gateway", func(t *testing.T) {
		sess := testSession("api")
		reply := rt.Call(context.Background(), sess, APIIntegration{Query: &DataQuery{Table: "t"}, NextStep: "ok"})
		assert.False(t, reply.End)
		assert.Equal(t, "api", sess.CurrentStep)
	})
}

func TestCall_DataQueryGoesToGateway(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"balance": 10}]`))
	}))
	defer srv.Close()

	rt := testRuntime()
	rt.DataGatewayURL = srv.URL
	sess := testSession("db")
	sess.InputValues["phone"] = "+2547"

	rt.Call(context.Background(), sess, APIIntegration{
		Method:         "POST",
		ResultVariable: "rows",
		NextStep:       "next",
		Query: &DataQuery{
			Operation:  "select",
			Table:      "accounts",
			Query:      "SELECT balance FROM accounts WHERE phone = $1",
			Parameters: []string{"phone"},
		},
	})

	assert.Equal(t, "select", got["operation"])
	assert.Equal(t, "accounts", got["table"])
	assert.Equal(t, []any{"+2547"}, got["parameters"])
	assert.Equal(t, "next", sess.CurrentStep)
	assert.Equal(t, []any{map[string]any{"balance": 10.0}}, sess.APIResponses["rows"])
}
