package assistant

import (
	"context"
	"strings"

	"github.com/nsing-labs/ragbridge/internal/reply"
)

// MockSource serves canned replies without touching the network. It is
// used for demos and for wiring tests that need a deterministic
// assistant.
type MockSource struct{}

// NewMockSource creates a mock source.
func NewMockSource() *MockSource {
	return &MockSource{}
}

func (s *MockSource) Name() string {
	return "mock"
}

func (s *MockSource) Send(ctx context.Context, sessionID, prompt string) (reply.Reply, error) {
	normalized := strings.ToLower(prompt)
	switch {
	case strings.Contains(normalized, "introduce"):
		return reply.Reply{
			Content: "I'm the NSING Assistant, here to share updates, specs, and support guidance.",
		}, nil
	case strings.Contains(normalized, "spec"):
		return reply.Reply{
			Content: "Here's a placeholder NSING N32 spec table:\n\n" +
				"| Product | Core | Flash | SRAM | Peripherals |\n" +
				"| --- | --- | --- | --- | --- |\n" +
				"| N32H787 | Cortex-M7 | 2 MB | 512 KB | CAN FD, USB HS, Ethernet |\n" +
				"| N32G457 | Cortex-M4 | 512 KB | 192 KB | I2C, SPI, UART, USB |\n" +
				"| N32S032 | Cortex-M0 | 64 KB | 16 KB | SPI, I2C, GPIO |\n" +
				"| N32A455 | Cortex-M4F | 256 KB | 96 KB | CAN, LIN, PWM, ADC |",
		}, nil
	case strings.Contains(normalized, "choml"), strings.Contains(normalized, "icon"), strings.Contains(normalized, "link"):
		return reply.Reply{
			Content: "Open the link below to view the Choml icon used in our chatbot:\n\n[View choml.png](images/choml.png)",
		}, nil
	}
	return reply.Reply{
		Content: "Thanks for the question! This demo assistant currently serves hardcoded replies for testing.",
	}, nil
}
