package cli

import (
	"strings"
	"testing"
)

func TestCommandsRequireArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"show", []string{"show"}},
		{"add", []string{"add"}},
		{"update without fields", []string{"update", "123-45"}},
		{"wish", []string{"wish"}},
		{"reviews", []string{"reviews"}},
		{"review", []string{"review"}},
		{"watch", []string{"watch"}},
		{"recommend", []string{"recommend"}},
		{"upload", []string{"upload"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNoArgCommandsRejectExtraArgs(t *testing.T) {
	for _, name := range []string{"login", "logout", "status", "list", "mine", "amenities", "version"} {
		t.Run(name, func(t *testing.T) {
			_, err := executeCommand(name, "extra")
			if err == nil {
				t.Fatal("expected error for extra args")
			}
		})
	}
}

func TestReviewRequiresRatingFlag(t *testing.T) {
	_, err := executeCommand("review", "123-45")
	if err == nil || !strings.Contains(err.Error(), "rating") {
		t.Fatalf("err = %v, want missing rating", err)
	}
}

func TestReviewRejectsInvalidRating(t *testing.T) {
	useTempConfig(t)

	tests := []struct {
		name   string
		rating string
	}{
		{"zero", "0"},
		{"six", "6"},
		{"negative", "-1"},
		{"string", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand("review", "123-45", "--rating", tt.rating)
			if err == nil {
				t.Fatal("expected error for invalid rating")
			}
		})
	}
}

func TestUpdateRejectsBadAssignment(t *testing.T) {
	useTempConfig(t)

	_, err := executeCommand("update", "123-45", "monthly_rent")
	if err == nil || !strings.Contains(err.Error(), "field=value") {
		t.Fatalf("err = %v, want assignment error", err)
	}
}

func TestListRejectsUnknownAvailability(t *testing.T) {
	useTempConfig(t)

	_, err := executeCommand("list", "--for", "lease")
	if err == nil || !strings.Contains(err.Error(), "invalid availability") {
		t.Fatalf("err = %v, want availability error", err)
	}
}

func TestUploadWithoutAssetHost(t *testing.T) {
	path := useTempConfig(t)
	t.Setenv("HM_ASSET_CLOUD", "")
	t.Setenv("HM_ASSET_PRESET", "")

	_, err := executeCommand("upload", "--config", path, "photo.jpg")
	if err == nil {
		t.Fatal("expected error without asset host configuration")
	}
}
