package env

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{in: "development", want: Development},
		{in: "production", want: Production},
		{in: " Production ", want: Production},
		{in: "prod", wantErr: true},
		{in: "staging", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnmarshalTextKeepsValueOnError(t *testing.T) {
	t.Parallel()

	e := Development
	if err := e.UnmarshalText([]byte("prod")); err == nil {
		t.Fatal("UnmarshalText() error = nil")
	}
	if e != Development {
		t.Errorf("environment = %q after failed unmarshal, want %q", e, Development)
	}
	if err := e.UnmarshalText([]byte("PRODUCTION")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if !e.IsProduction() {
		t.Errorf("IsProduction() = false for %q", e)
	}
}
