package hub

import (
	"errors"
	"testing"
)

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ConnectionString
		wantErr error
	}{
		{
			name:  "full string",
			input: "HostName=hub.example.com;DeviceId=dev-1;SharedAccessKey=c2VjcmV0",
			want: ConnectionString{
				HostName:        "hub.example.com",
				DeviceID:        "dev-1",
				SharedAccessKey: "c2VjcmV0",
			},
		},
		{
			name:  "with gateway",
			input: "HostName=hub.example.com;DeviceId=dev-1;SharedAccessKey=k;GatewayHostName=edge.local",
			want: ConnectionString{
				HostName:        "hub.example.com",
				DeviceID:        "dev-1",
				SharedAccessKey: "k",
				GatewayHostName: "edge.local",
			},
		},
		{
			name:  "whitespace and trailing semicolon tolerated",
			input: "  HostName=h;DeviceId=d; ",
			want:  ConnectionString{HostName: "h", DeviceID: "d"},
		},
		{
			name:  "unknown keys ignored",
			input: "HostName=h;DeviceId=d;ModuleId=m",
			want:  ConnectionString{HostName: "h", DeviceID: "d"},
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: ErrEmptyConnectionString,
		},
		{
			name:    "missing host",
			input:   "DeviceId=d;SharedAccessKey=k",
			wantErr: ErrMissingHostName,
		},
		{
			name:    "missing device id",
			input:   "HostName=h;SharedAccessKey=k",
			wantErr: ErrMissingDeviceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConnectionString(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("parsed = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseConnectionStringBadSegment(t *testing.T) {
	if _, err := ParseConnectionString("HostName=h;garbage"); err == nil {
		t.Error("expected error for segment without =")
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name string
		cs   ConnectionString
		want string
	}{
		{
			name: "bare host gets default port",
			cs:   ConnectionString{HostName: "hub.example.com"},
			want: "tcp://hub.example.com:1883",
		},
		{
			name: "explicit port preserved",
			cs:   ConnectionString{HostName: "localhost:2883"},
			want: "tcp://localhost:2883",
		},
		{
			name: "scheme passed through",
			cs:   ConnectionString{HostName: "ssl://hub.example.com:8883"},
			want: "ssl://hub.example.com:8883",
		},
		{
			name: "gateway preferred",
			cs:   ConnectionString{HostName: "hub.example.com", GatewayHostName: "edge.local"},
			want: "tcp://edge.local:1883",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cs.BrokerURL(); got != tt.want {
				t.Errorf("BrokerURL() = %s, want %s", got, tt.want)
			}
		})
	}
}
