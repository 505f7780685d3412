package observations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValidType(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"safe granule", "/g/data/S2A_MSIL2A_20170904T105021_N0205_R051_T31UFT", TypeS2L2},
		{"user product", "/g/data/S2A_USER_PRD_MSIL2A_20160312T103020", TypeS2L2},
		{"s2b granule", "/g/data/S2B_MSIL2A_20180104T105021_N0206", TypeS2L2},
		{"aws tile", "/mnt/sentinel-s2-l2a/tiles/31/U/FT/2017/9/4/0", TypeAWSS2L2},
		{"aws tile trailing slash", "/mnt/tiles/8/C/AB/2018/12/31/1/", TypeAWSS2L2},
		{"landsat", "/g/data/LC08_L1TP_091084_20170904", ""},
		{"bare folder", "/g/data/products", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetValidType(tt.url))
		})
	}
}

func TestGetRelativePath(t *testing.T) {
	awsURL := "/mnt/sentinel-s2-l2a/tiles/31/U/FT/2017/9/4/0"
	assert.Equal(t, "/31/U/FT/2017/9/4/0", GetRelativePath(awsURL, TypeAWSS2L2))

	safeURL := "/g/data/S2A_MSIL2A_20170904T105021_N0205"
	assert.Equal(t, "", GetRelativePath(safeURL, TypeS2L2), "granule products are flat")

	assert.Equal(t, "", GetRelativePath(awsURL, "UNKNOWN"))
}

func TestExtractTimeFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		dataType string
		want     time.Time
		ok       bool
	}{
		{
			"granule name time",
			"/g/data/S2A_MSIL2A_20170904T105021_N0205",
			TypeS2L2,
			time.Date(2017, 9, 4, 10, 50, 21, 0, time.UTC),
			true,
		},
		{
			"aws path time",
			"/mnt/tiles/31/U/FT/2017/9/4/0",
			TypeAWSS2L2,
			time.Date(2017, 9, 4, 0, 0, 0, 0, time.UTC),
			true,
		},
		{
			"aws two digit day",
			"/mnt/tiles/8/C/AB/2018/12/31/1",
			TypeAWSS2L2,
			time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC),
			true,
		},
		{"granule without timestamp", "/g/data/products/x", TypeS2L2, time.Time{}, false},
		{"unknown type", "/g/data/products/x", "UNKNOWN", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTimeFromURL(tt.url, tt.dataType)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}
