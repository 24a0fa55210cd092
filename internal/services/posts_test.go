package services

import (
	"context"
	"database/sql/driver"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeletePost(t *testing.T) {
	bob := Principal{ID: 4, Username: "bob", Role: models.RoleDonor}

	tests := []struct {
		name     string
		post     []driver.Value
		accepted int
		kind     error
		message  string
	}{
		{
			name:    "missing",
			kind:    ErrNotFound,
			message: "Post not found",
		},
		{
			name:    "another donor's post",
			post:    row(9, "mallory", "{rice}", "12 Market St", 12.97, 77.59, true, ""),
			kind:    ErrForbidden,
			message: "You can only delete your own posts",
		},
		{
			name:     "accepted request",
			post:     row(9, "bob", "{rice}", "12 Market St", 12.97, 77.59, false, ""),
			accepted: 1,
			kind:     ErrInvalidState,
			message:  "Post has accepted requests and cannot be deleted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := setupServices(t, nil)
			mock.ExpectBegin()
			expectPost(mock, true, tt.post...)
			if tt.accepted > 0 {
				mock.ExpectQuery(`SELECT count\(\*\) FROM "requests" WHERE post_id = \$1 AND is_accepted = \$2`).
					WithArgs(9, true).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.accepted))
			}
			mock.ExpectRollback()

			err := svc.Posts.Delete(context.Background(), bob, 9)
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("removes pending requests and the image", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		dir := t.TempDir()
		storage, err := NewLocalStorage(dir, "http://localhost:9500")
		require.NoError(t, err)
		svc.Posts.Storage = storage

		image := filepath.Join(dir, "posts", "rice.png")
		require.NoError(t, os.MkdirAll(filepath.Dir(image), 0755))
		require.NoError(t, os.WriteFile(image, pngHeader, 0644))

		mock.ExpectBegin()
		expectPost(mock, true, 9, "bob", "{rice}", "12 Market St", 12.97, 77.59, true, "posts/rice.png")
		mock.ExpectQuery(`SELECT count\(\*\) FROM "requests" WHERE post_id = \$1 AND is_accepted = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM "requests" WHERE post_id = \$1`).
			WithArgs(9).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM "posts" WHERE "posts"."id" = \$1`).
			WithArgs(9).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.Posts.Delete(context.Background(), bob, 9))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoFileExists(t, image)
	})
}

func TestListPostsAcrossAntimeridian(t *testing.T) {
	svc, mock := setupServices(t, nil)
	lat, lng, radius := -17.8, 179.98, 10.0

	mock.ExpectQuery(`SELECT \* FROM "posts" WHERE .*coordinates_lat BETWEEN \$2 AND \$3.*coordinates_lng BETWEEN \$4 AND \$5\) OR \(coordinates_lng BETWEEN \$6 AND \$7\)`).
		WithArgs(true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 180.0, -180.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(1, "bob", "{rice}", "Suva", -17.8, -179.97, true, "").
			AddRow(2, "bob", "{dal}", "Lautoka", -17.8, 179.99, true, "").
			AddRow(3, "bob", "{roti}", "Far away", -17.8, 179.5, true, ""))

	posts, err := svc.Posts.List(context.Background(), ListPostsQuery{Lat: &lat, Lng: &lng, Radius: &radius})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, uint(2), posts[0].ID)
	assert.Equal(t, uint(1), posts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
