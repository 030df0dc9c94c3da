package middleware_test

import (
	"time"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/flow"
)

func paymentProject() *domain.Project {
	g := &flow.Graph{
		Nodes: []flow.Node{
			{ID: "pay", Type: flow.TypePaymentOption, Data: flow.NodeData{
				Label: "Pay",
				Properties: map[string]any{
					"provider": "mpesa",
					"passkey":  "s3cr3t-passkey",
					"amount":   100.0,
				},
			}},
			{ID: "api", Type: flow.TypeAPIIntegration, Data: flow.NodeData{
				Label: "Lookup",
				Properties: map[string]any{
					"url": "https://example.com/balance",
					"headers": []any{
						map[string]any{"key": "Authorization", "value": "Bearer abc"},
						map[string]any{"key": "Accept", "value": "application/json"},
					},
					"auth": map[string]any{"apiToken": "tok-123", "user": "ops"},
				},
			}},
		},
		Edges: []flow.Edge{{ID: "e1", Source: "api", Target: "pay"}},
	}
	p := domain.NewProject("Pesa", "payments", g, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	p.Generated = map[string]string{"main.go": "package main\n"}
	return p
}
