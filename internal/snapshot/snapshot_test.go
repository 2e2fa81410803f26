package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/claude/mapty/internal/models"
)

func TestRoundTrip(t *testing.T) {
	in := []*models.Workout{
		models.NewRunning(models.Coordinates{Lat: 52.52, Lng: 13.405}, 5, 30, 160),
		models.NewCycling(models.Coordinates{Lat: 48.85, Lng: 2.35}, 20, 60, -12.5),
		models.NewRunning(models.Coordinates{Lat: -33.86, Lng: 151.2}, 10.2, 52, 178),
	}

	data, err := Encode(in)
	require.NoError(t, err)

	out := Decode(data)
	require.Len(t, out, len(in))
	for i := range in {
		require.Equal(t, in[i].Kind, out[i].Kind)
		require.Equal(t, in[i].Coordinates, out[i].Coordinates)
		require.Equal(t, in[i].Distance, out[i].Distance)
		require.Equal(t, in[i].Duration, out[i].Duration)
		require.Equal(t, in[i].Extra(), out[i].Extra())
		require.Equal(t, in[i].Metric(), out[i].Metric())
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode([]*models.Workout{
		models.NewRunning(models.Coordinates{Lat: 1, Lng: 2}, 5, 30, 160),
		models.NewCycling(models.Coordinates{Lat: 3, Lng: 4}, 20, 60, 0),
	})
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"type":"running","coordinates":[1,2],"distance":5,"duration":30,"cadence":160},
		{"type":"cycling","coordinates":[3,4],"distance":20,"duration":60,"elevationGain":0}
	]`, string(data))
}

func TestDecodeRecomputesDerivedFields(t *testing.T) {
	// pace in the blob is ignored; it is rebuilt from distance and duration.
	blob := `[{"type":"running","coordinates":[1,2],"distance":4,"duration":20,"cadence":150,"paces":99}]`
	out := Decode([]byte(blob))
	require.Len(t, out, 1)
	require.Equal(t, 5.0, out[0].Pace)
	require.Contains(t, out[0].Description, "Running on ")
}

func TestDecodeFailsSoft(t *testing.T) {
	cases := map[string]string{
		"absent":          "",
		"null":            "null",
		"not json":        "{workouts",
		"object":          `{"type":"running"}`,
		"unknown type":    `[{"type":"rowing","coordinates":[1,2],"distance":1,"duration":1}]`,
		"short coords":    `[{"type":"running","coordinates":[1],"distance":1,"duration":1,"cadence":1}]`,
		"missing cadence": `[{"type":"running","coordinates":[1,2],"distance":1,"duration":1}]`,
		"missing gain":    `[{"type":"cycling","coordinates":[1,2],"distance":1,"duration":1}]`,
		"string distance": `[{"type":"running","coordinates":[1,2],"distance":"5","duration":1,"cadence":1}]`,
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			out := Decode([]byte(blob))
			require.NotNil(t, out)
			require.Empty(t, out)
		})
	}
}

func TestDecodeStrictReportsMalformed(t *testing.T) {
	_, err := DecodeStrict([]byte(`[{"type":"rowing","coordinates":[1,2],"distance":1,"duration":1}]`))
	require.ErrorIs(t, err, ErrMalformed)

	out, err := DecodeStrict(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}
