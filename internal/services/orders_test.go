package services

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderColumns = []string{"id", "donor_username", "user_username", "delivery_boy_id", "delivery_boy_name", "status"}
	boyColumns   = []string{"id", "delivery_boy_name", "user_username", "status", "current_location_lat", "current_location_lng", "delivered_orders"}
)

func TestAssignCreatesOrder(t *testing.T) {
	owner := Principal{ID: 1, Username: "alice", Role: models.RoleUser}
	input := AssignOrderInput{RequestID: 3, DeliveryBoyID: 7, DeliveryLocation: " Shelter, 5th Cross "}

	expectAssignable := func(mock sqlmock.Sqlmock) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "requests" WHERE "requests"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(requestColumns).AddRow(3, "bob", "alice", 9, "Old Town", "{rice}", true, false))
		mock.ExpectQuery(`SELECT \* FROM "delivery_boys" WHERE "delivery_boys"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(boyColumns).AddRow(7, "dash", "alice", models.DeliveryBoyAvailable, 12.97, 77.59, 2))
	}
	expectWrites := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`INSERT INTO "orders"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectExec(`UPDATE "requests" SET "is_assigned"=\$1,"updated_at"=\$2 WHERE`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "delivery_boys" SET "status"=\$1,"updated_at"=\$2 WHERE`).
			WithArgs(models.DeliveryBoyBusy, sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	t.Run("pickup from post", func(t *testing.T) {
		store, mr := setupStore(t)
		svc, mock := setupServices(t, store)
		ctx := context.Background()
		require.NoError(t, store.IndexAvailable(ctx, "alice", 7, 12.97, 77.59))

		expectAssignable(mock)
		expectPost(mock, false, 9, "bob", "{rice}", "12 Market St", 12.98, 77.6, true, "")
		expectWrites(mock)

		order, err := svc.Orders.Assign(ctx, owner, input)
		require.NoError(t, err)
		assert.Equal(t, uint(11), order.ID)
		assert.Equal(t, models.OrderOnGoing, order.Status)
		assert.Equal(t, "dash", order.DeliveryBoyName)
		assert.Equal(t, "12 Market St", order.PickupLocation)
		assert.Equal(t, models.GeoPoint{Lat: 12.98, Lng: 77.6}, order.PickupLocationCoordinates)
		assert.Equal(t, "Shelter, 5th Cross", order.DeliveryLocation)
		assert.NoError(t, mock.ExpectationsWereMet())

		matches, err := store.NearestAvailable(ctx, "alice", 12.97, 77.59, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, matches, "busy delivery boy leaves the index")
		assert.False(t, mr.Exists(DeliveryBoyLockKey(7)), "lock must be released")
	})

	t.Run("pickup from donor when post is gone", func(t *testing.T) {
		svc, mock := setupServices(t, nil)

		expectAssignable(mock)
		expectPost(mock, false)
		mock.ExpectQuery(`SELECT \* FROM "donors" WHERE username = \$1`).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "address_coordinates_lat", "address_coordinates_lng"}).
				AddRow(4, "bob", 12.95, 77.61))
		expectWrites(mock)

		order, err := svc.Orders.Assign(context.Background(), owner, input)
		require.NoError(t, err)
		assert.Equal(t, "Old Town", order.PickupLocation)
		assert.Equal(t, models.GeoPoint{Lat: 12.95, Lng: 77.61}, order.PickupLocationCoordinates)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	dash := Principal{ID: 7, Username: "dash", Role: models.RoleDeliveryBoy}

	tests := []struct {
		name    string
		who     Principal
		order   []driver.Value
		status  string
		kind    error
		message string
	}{
		{
			name:    "order missing",
			who:     dash,
			status:  models.OrderPickedUp,
			kind:    ErrNotFound,
			message: "Order not found",
		},
		{
			name:    "another delivery boy",
			who:     Principal{ID: 8, Username: "zip", Role: models.RoleDeliveryBoy},
			order:   row(11, "bob", "alice", 7, "dash", models.OrderOnGoing),
			status:  models.OrderPickedUp,
			kind:    ErrForbidden,
			message: "Only the assigned delivery boy can update this order",
		},
		{
			name:    "user cannot update",
			who:     Principal{ID: 7, Username: "alice", Role: models.RoleUser},
			order:   row(11, "bob", "alice", 7, "dash", models.OrderOnGoing),
			status:  models.OrderPickedUp,
			kind:    ErrForbidden,
			message: "Only the assigned delivery boy can update this order",
		},
		{
			name:    "backwards",
			who:     dash,
			order:   row(11, "bob", "alice", 7, "dash", models.OrderDelivered),
			status:  models.OrderPickedUp,
			kind:    ErrInvalidState,
			message: "Cannot change order status from delivered to picked-up",
		},
		{
			name:    "unknown status",
			who:     dash,
			order:   row(11, "bob", "alice", 7, "dash", models.OrderOnGoing),
			status:  "lost",
			kind:    ErrInvalidState,
			message: "Cannot change order status from on-going to lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := setupServices(t, nil)
			rows := sqlmock.NewRows(orderColumns)
			if tt.order != nil {
				rows.AddRow(tt.order...)
			}
			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).WillReturnRows(rows)
			mock.ExpectRollback()

			_, err := svc.Orders.UpdateStatus(context.Background(), tt.who, 11, tt.status)
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("picked up", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(11, "bob", "alice", 7, "dash", models.OrderOnGoing))
		mock.ExpectExec(`UPDATE "orders" SET "status"=\$1,"updated_at"=\$2 WHERE`).
			WithArgs(models.OrderPickedUp, sqlmock.AnyArg(), 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		order, err := svc.Orders.UpdateStatus(context.Background(), dash, 11, models.OrderPickedUp)
		require.NoError(t, err)
		assert.Equal(t, models.OrderPickedUp, order.Status)
		assert.Nil(t, order.DeliveredAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delivered credits everyone and frees the delivery boy", func(t *testing.T) {
		store, _ := setupStore(t)
		svc, mock := setupServices(t, store)
		ctx := context.Background()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(11, "bob", "alice", 7, "dash", models.OrderPickedUp))
		mock.ExpectExec(`UPDATE "orders" SET "delivered_at"=\$1,"status"=\$2,"updated_at"=\$3 WHERE`).
			WithArgs(sqlmock.AnyArg(), models.OrderDelivered, sqlmock.AnyArg(), 11).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "delivery_boys" WHERE "delivery_boys"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(boyColumns).AddRow(7, "dash", "alice", models.DeliveryBoyBusy, 12.97, 77.59, 2))
		mock.ExpectExec(`UPDATE "delivery_boys" SET "delivered_orders"=delivered_orders \+ \$1,"status"=\$2,"updated_at"=\$3 WHERE`).
			WithArgs(1, models.DeliveryBoyAvailable, sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "users" SET "delivered_orders_count"=delivered_orders_count \+ \$1 WHERE username = \$2`).
			WithArgs(1, "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "donors" SET "donated_orders_count"=donated_orders_count \+ \$1 WHERE username = \$2`).
			WithArgs(1, "bob").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		order, err := svc.Orders.UpdateStatus(ctx, dash, 11, models.OrderDelivered)
		require.NoError(t, err)
		assert.Equal(t, models.OrderDelivered, order.Status)
		assert.NotNil(t, order.DeliveredAt)
		assert.NoError(t, mock.ExpectationsWereMet())

		matches, err := store.NearestAvailable(ctx, "alice", 12.97, 77.59, 1, 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, uint(7), matches[0].DeliveryBoyID)
	})
}

func TestRateOrder(t *testing.T) {
	bob := Principal{ID: 4, Username: "bob", Role: models.RoleDonor}

	t.Run("value out of range", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		for _, value := range []int{0, 6, -1} {
			_, _, err := svc.Orders.Rate(context.Background(), bob, 11, value)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, "Rating must be between 1 and 5", err.Error())
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	tests := []struct {
		name    string
		order   []driver.Value
		rated   int
		kind    error
		message string
	}{
		{
			name:    "someone else's order",
			order:   row(11, "mallory", "alice", 7, "dash", models.OrderDelivered),
			kind:    ErrForbidden,
			message: "You can only rate your own orders",
		},
		{
			name:    "not delivered",
			order:   row(11, "bob", "alice", 7, "dash", models.OrderPickedUp),
			kind:    ErrInvalidState,
			message: "Only delivered orders can be rated",
		},
		{
			name:    "already rated",
			order:   row(11, "bob", "alice", 7, "dash", models.OrderDelivered),
			rated:   1,
			kind:    ErrConflict,
			message: "Order already rated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := setupServices(t, nil)
			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(tt.order...))
			if tt.rated > 0 {
				mock.ExpectQuery(`SELECT count\(\*\) FROM "ratings" WHERE order_id = \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.rated))
			}
			mock.ExpectRollback()

			_, _, err := svc.Orders.Rate(context.Background(), bob, 11, 4)
			require.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("records and averages", func(t *testing.T) {
		svc, mock := setupServices(t, nil)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"."id" = \$1 .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(11, "bob", "alice", 7, "dash", models.OrderDelivered))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "ratings" WHERE order_id = \$1`).
			WithArgs(11).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO "ratings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1 .*FOR UPDATE`).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "rating"}).AddRow(1, "alice", 5.0))
		mock.ExpectQuery(`SELECT "value" FROM "ratings" WHERE user_username = \$1`).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(5).AddRow(4))
		mock.ExpectExec(`UPDATE "users" SET "rating"=\$1,"updated_at"=\$2 WHERE`).
			WithArgs(4.5, sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rating, userRating, err := svc.Orders.Rate(context.Background(), bob, 11, 4)
		require.NoError(t, err)
		assert.Equal(t, uint(21), rating.ID)
		assert.Equal(t, 4, rating.Value)
		assert.Equal(t, "alice", rating.UserUsername)
		assert.InDelta(t, 4.5, userRating, 1e-9)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
