package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateUser(t *testing.T) {
	alice := Principal{ID: 1, Username: "alice", Role: models.RoleUser}
	userColumns := []string{"id", "username", "address_street", "address_town_city", "address_coordinates_lat", "address_coordinates_lng"}
	street := "Anna Salai"

	t.Run("someone else's profile", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		for _, who := range []Principal{
			{ID: 2, Username: "mallory", Role: models.RoleUser},
			{ID: 1, Username: "bob", Role: models.RoleDonor},
		} {
			_, err := svc.Users.UpdateUser(context.Background(), who, 1, UpdateUserInput{})
			require.ErrorIs(t, err, ErrForbidden)
			assert.Equal(t, "You can only update your own profile", err.Error())
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("merges address with coordinates", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "MG Road", "Bengaluru", 12.97, 77.59))
		mock.ExpectExec(`UPDATE "users" SET .*"address_street"=.* WHERE "id" = `).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user, err := svc.Users.UpdateUser(context.Background(), alice, 1, UpdateUserInput{
			Address: &models.AddressPatch{Street: &street, Coordinates: []float64{80.27, 13.08}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Anna Salai", user.Address.Street)
		assert.Equal(t, "Bengaluru", user.Address.TownCity)
		assert.Equal(t, models.GeoPoint{Lng: 80.27, Lat: 13.08}, user.Address.Coordinates)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ignored without coordinates", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "MG Road", "Bengaluru", 12.97, 77.59))
		mock.ExpectCommit()

		user, err := svc.Users.UpdateUser(context.Background(), alice, 1, UpdateUserInput{
			Address: &models.AddressPatch{Street: &street},
		})
		require.NoError(t, err)
		assert.Equal(t, "MG Road", user.Address.Street)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "MG Road", "Bengaluru", 12.97, 77.59))
		mock.ExpectRollback()

		_, err := svc.Users.UpdateUser(context.Background(), alice, 1, UpdateUserInput{
			Address: &models.AddressPatch{Coordinates: []float64{200, 13.08}},
		})
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSendRequest(t *testing.T) {
	alice := Principal{ID: 1, Username: "alice", Role: models.RoleUser}

	t.Run("post missing", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		expectPost(mock, false)

		_, err := svc.Users.SendRequest(context.Background(), alice, 9)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "Post not found", err.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("post taken", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		expectPost(mock, false, 9, "bob", "{rice}", "12 Market St", 12.97, 77.59, false, "")

		_, err := svc.Users.SendRequest(context.Background(), alice, 9)
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, "Post is no longer available", err.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already requested", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		expectPost(mock, false, 9, "bob", "{rice}", "12 Market St", 12.97, 77.59, true, "")
		mock.ExpectQuery(`SELECT count\(\*\) FROM "requests" WHERE user_username = \$1 AND post_id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, err := svc.Users.SendRequest(context.Background(), alice, 9)
		require.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("copies the post", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		expectPost(mock, false, 9, "bob", "{rice,dal}", "12 Market St", 12.97, 77.59, true, "")
		mock.ExpectQuery(`SELECT count\(\*\) FROM "requests" WHERE user_username = \$1 AND post_id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "donors"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO "requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectCommit()

		request, err := svc.Users.SendRequest(context.Background(), alice, 9)
		require.NoError(t, err)
		assert.Equal(t, uint(5), request.ID)
		assert.Equal(t, "bob", request.DonorUsername)
		assert.Equal(t, "12 Market St", request.Location)
		assert.Equal(t, []string{"rice", "dal"}, []string(request.AvailableFood))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
