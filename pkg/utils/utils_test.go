package utils

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	// Bengaluru to Chennai is roughly 290 km
	d := HaversineDistance(12.9716, 77.5946, 13.0827, 80.2707)
	assert.InDelta(t, 290, d, 5)

	assert.Zero(t, HaversineDistance(10, 10, 10, 10))
	assert.InDelta(t, d, HaversineDistance(13.0827, 80.2707, 12.9716, 77.5946), 1e-9)
}

func TestBoundingBox(t *testing.T) {
	center := Point{Lat: 12.97, Lng: 77.59}
	box := GetBoundingBox(center, 10)

	assert.True(t, box.Contains(center))
	assert.True(t, box.Contains(Point{Lat: 13.0, Lng: 77.6}))
	assert.False(t, box.Contains(Point{Lat: 14, Lng: 77.59}))

	// every point within the radius must pass the prefilter
	for _, p := range []Point{{12.97 + 0.089, 77.59}, {12.97, 77.59 + 0.092}, {12.97 - 0.06, 77.59 - 0.06}} {
		if IsWithinRadius(center, p, 10) {
			assert.True(t, box.Contains(p), "%v", p)
		}
	}

	pole := GetBoundingBox(Point{Lat: 90, Lng: 0}, 10)
	assert.Equal(t, -180.0, pole.SouthWest.Lng)
	assert.Equal(t, 180.0, pole.NorthEast.Lng)
	assert.False(t, pole.CrossesAntimeridian())
}

func TestBoundingBoxAcrossAntimeridian(t *testing.T) {
	tests := []struct {
		name   string
		center Point
		across Point
	}{
		{"east of the date line", Point{Lat: -17.8, Lng: 179.98}, Point{Lat: -17.8, Lng: -179.97}},
		{"west of the date line", Point{Lat: -17.8, Lng: -179.98}, Point{Lat: -17.8, Lng: 179.97}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := GetBoundingBox(tt.center, 10)
			require.True(t, IsWithinRadius(tt.center, tt.across, 10))

			assert.True(t, box.CrossesAntimeridian())
			assert.Len(t, box.LngRanges(), 2)
			assert.True(t, box.Contains(tt.center))
			assert.True(t, box.Contains(tt.across))
			assert.False(t, box.Contains(Point{Lat: -17.8, Lng: 0}))
		})
	}

	inland := GetBoundingBox(Point{Lat: 12.97, Lng: 77.59}, 10)
	assert.False(t, inland.CrossesAntimeridian())
	assert.Len(t, inland.LngRanges(), 1)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}

func TestTokenRoundTrip(t *testing.T) {
	token, issued, err := GenerateToken("secret", time.Hour, 7, "asha", "user")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "asha", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), claims.Remaining().Seconds(), 5)
}

func TestValidateTokenRejects(t *testing.T) {
	good, _, err := GenerateToken("secret", time.Hour, 1, "asha", "user")
	require.NoError(t, err)
	expired, _, err := GenerateToken("secret", -time.Minute, 1, "asha", "user")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "asha", Role: "user"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{name: "wrong secret", secret: "other", token: good},
		{name: "expired", secret: "secret", token: expired},
		{name: "alg none", secret: "secret", token: unsigned},
		{name: "garbage", secret: "secret", token: "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, _, err = GenerateToken("", time.Hour, 1, "a", "user")
	assert.Error(t, err)
}

func TestValidationErrors(t *testing.T) {
	type address struct {
		Pincode string `validate:"required,pincode"`
	}
	type input struct {
		Username string  `validate:"required"`
		Email    string  `validate:"required,email"`
		Status   string  `validate:"oneof=available inactive"`
		Address  address
	}

	v := validator.New()
	require.NoError(t, RegisterValidations(v))

	err := v.Struct(input{Email: "nope", Status: "busy", Address: address{Pincode: "0123"}})
	errs := ValidationErrors(err)

	assert.Equal(t, map[string]string{
		"username":        "This field is required",
		"email":           "Invalid email format",
		"status":          "Must be one of: available, inactive",
		"address.pincode": "Must be a 6 digit pincode",
	}, errs)
	assert.Equal(t,
		"address.pincode: Must be a 6 digit pincode; email: Invalid email format; status: Must be one of: available, inactive; username: This field is required",
		FormatValidationErrors(errs))

	assert.Nil(t, ValidationErrors(assert.AnError))
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := InitLogger(dir, true)
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
	assert.FileExists(t, dir+"/"+LogFileName)
}
