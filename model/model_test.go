package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"zero page coerced", Page{Number: 0, Size: 10}, Page{Number: 1, Size: 10}},
		{"default size", Page{Number: 3}, Page{Number: 3, Size: 20}},
		{"negative values", Page{Number: -2, Size: -1}, Page{Number: 1, Size: 20}},
		{"unchanged", Page{Number: 2, Size: 5}, Page{Number: 2, Size: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(20))
		})
	}

	assert.Equal(t, int64(10), Page{Number: 3, Size: 5}.Skip())
}

func TestPageSkipSaturates(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want int64
	}{
		{"first page", Page{Number: 1, Size: 20}, 0},
		{"unnormalized", Page{Number: 0, Size: 0}, 0},
		{"huge page number", Page{Number: 1 << 62, Size: 20}, math.MaxInt64},
		{"max page number", Page{Number: math.MaxInt64, Size: 100}, math.MaxInt64},
		{"largest exact skip", Page{Number: math.MaxInt64/20 + 1, Size: 20}, (math.MaxInt64 / 20) * 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.page.Skip()
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, int64(0))
		})
	}
}

func TestContainsIDUsesValueEquality(t *testing.T) {
	id := primitive.NewObjectID()
	copyOfID, err := primitive.ObjectIDFromHex(id.Hex())
	require.NoError(t, err)

	assert.True(t, ContainsID([]primitive.ObjectID{primitive.NewObjectID(), copyOfID}, id))
	assert.False(t, ContainsID(nil, id))
}

func TestProfileHidesSecrets(t *testing.T) {
	u := &User{
		ID:                primitive.NewObjectID(),
		Email:             "a@example.com",
		PasswordHash:      "hash",
		IP:                "10.0.0.1",
		GoogleAccessToken: "ya29.token",
	}

	data, err := json.Marshal(u.Profile())
	require.NoError(t, err)

	body := string(data)
	assert.NotContains(t, body, "hash")
	assert.NotContains(t, body, "10.0.0.1")
	assert.NotContains(t, body, "ya29.token")
	assert.Contains(t, body, `"followers":[]`)
}
