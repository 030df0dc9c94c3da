package ussdrt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// DataQuery forwards a database operation to the data gateway.
type DataQuery struct {
	Operation  string
	Table      string
	Query      string
	Parameters []string
}

// APIIntegration is the baked configuration of an outbound call step.
// DefaultData is a JSON object merged under the captured input values.
type APIIntegration struct {
	Method         string
	URL            string
	Headers        map[string]string
	DefaultData    string
	ResultVariable string
	NextStep       string
	ErrorNextStep  string
	SuccessMessage string
	ErrorMessage   string
	TimeoutSeconds int
	Query          *DataQuery
}

// Call performs the request and stores the decoded response. Failures of any
// kind route to the error step and keep the session open.
func (rt *Runtime) Call(ctx context.Context, sess *Session, a APIIntegration) Reply {
	result, err := rt.call(ctx, sess, a)
	if err != nil {
		rt.log().Warn("api call failed", "url", a.URL, "step", sess.CurrentStep, "err", err)
		if a.ErrorNextStep != "" {
			sess.CurrentStep = a.ErrorNextStep
		}
		return Con(Interpolate(orDefault(a.ErrorMessage, "Service error. Please try again."), sess))
	}
	sess.APIResponses[a.ResultVariable] = result
	sess.CurrentStep = a.NextStep
	return Con(Interpolate(orDefault(a.SuccessMessage, "API call successful. Proceeding..."), sess))
}

func (rt *Runtime) call(ctx context.Context, sess *Session, a APIIntegration) (any, error) {
	payload := map[string]any{}
	if strings.TrimSpace(a.DefaultData) != "" {
		if err := json.Unmarshal([]byte(a.DefaultData), &payload); err != nil {
			return nil, fmt.Errorf("default data: %w", err)
		}
	}
	for k, v := range sess.InputValues {
		payload[k] = v
	}

	method := strings.ToUpper(orDefault(a.Method, http.MethodGet))
	target := interpolateURL(a.URL, sess)
	var body any = payload
	if a.Query != nil {
		if rt.DataGatewayURL == "" {
			return nil, errors.New("data gateway is not configured")
		}
		target = rt.DataGatewayURL
		params := make([]string, len(a.Query.Parameters))
		for i, p := range a.Query.Parameters {
			params[i] = sess.Value(p)
		}
		body = map[string]any{
			"operation":  a.Query.Operation,
			"table":      a.Query.Table,
			"query":      a.Query.Query,
			"parameters": params,
			"values":     payload,
		}
	}
	if target == "" {
		return nil, errors.New("no url configured")
	}

	timeout := DefaultCallTimeout
	if a.TimeoutSeconds > 0 {
		timeout = time.Duration(a.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		for k, v := range payload {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
		target = u.String()
	} else {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range a.Headers {
		httpReq.Header.Set(k, Interpolate(v, sess))
	}

	resp, err := rt.client().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// interpolateURL substitutes {{name}} placeholders with query-escaped values.
func interpolateURL(raw string, sess *Session) string {
	if !strings.Contains(raw, "{{") {
		return raw
	}
	return placeholder.ReplaceAllStringFunc(raw, func(m string) string {
		return url.QueryEscape(sess.Value(placeholder.FindStringSubmatch(m)[1]))
	})
}
