package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bhoomiseva/landrecords-backend/internal/models"
)

// DatabaseStore persists everything in PostgreSQL via GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// User operations

func (d *DatabaseStore) UpsertUser(externalID string, patch models.UserPatch) (*models.User, error) {
	var user models.User
	err := d.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where(models.User{ExternalID: externalID}).
			Attrs(models.User{PhoneNumber: externalID, Profile: map[string]string{}}).
			FirstOrCreate(&user)
		if result.Error != nil {
			return result.Error
		}

		if patch.Name != "" {
			user.Name = patch.Name
		}
		if patch.LastSeen != nil {
			user.LastSeen = *patch.LastSeen
		}
		if user.Profile == nil {
			user.Profile = make(map[string]string)
		}
		for k, v := range patch.Profile {
			user.Profile[k] = v
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Session operations

func (d *DatabaseStore) FindSession(externalID string) (*models.Session, error) {
	var session models.Session
	err := d.db.Where("external_id = ?", externalID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *DatabaseStore) PutSession(session *models.Session) (*models.Session, error) {
	err := d.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"step", "selected_service", "pending_order_id", "form_data", "updated_at",
		}),
	}).Create(session).Error
	if err != nil {
		return nil, err
	}
	return d.FindSession(session.ExternalID)
}

// Order operations

func (d *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	if err := d.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderForSession claims the session row with a conditional UPDATE and
// inserts the order in the same transaction, so racing submissions for one
// session can never both create an order.
func (d *DatabaseStore) CreateOrderForSession(order *models.Order, expectPending string) (*models.Order, bool, error) {
	created := false
	err := d.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Session{}).
			Where("external_id = ? AND pending_order_id = ?", order.ExternalID, expectPending).
			Updates(map[string]interface{}{
				"pending_order_id": order.OrderID,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		return order, true, nil
	}

	// The guard failed: either the session is gone or another submission
	// claimed it. Return whatever is pending now.
	session, err := d.FindSession(order.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if session.PendingOrderID == "" {
		return nil, false, ErrNotFound
	}
	winner, err := d.FindOrderByOrderID(session.PendingOrderID)
	if err != nil {
		return nil, false, err
	}
	return winner, false, nil
}

func (d *DatabaseStore) FindOrderByOrderID(orderID string) (*models.Order, error) {
	return d.findOrder("order_id = ?", orderID)
}

func (d *DatabaseStore) FindOrderByGatewayRef(gatewayOrderRef string) (*models.Order, error) {
	return d.findOrder("gateway_order_ref = ?", gatewayOrderRef)
}

func (d *DatabaseStore) findOrder(query string, arg string) (*models.Order, error) {
	var order models.Order
	err := d.db.Where(query, arg).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseStore) UpdateOrder(orderID string, patch models.OrderPatch) (*models.Order, error) {
	updates := patch.Updates()
	updates["updated_at"] = time.Now()

	result := d.db.Model(&models.Order{}).Where("order_id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return d.FindOrderByOrderID(orderID)
}

// UpdateOrderIfStatus relies on the database's conditional UPDATE so that
// concurrent reconciliation attempts can never both win.
func (d *DatabaseStore) UpdateOrderIfStatus(orderID string, expect []string, patch models.OrderPatch) (*models.Order, bool, error) {
	updates := patch.Updates()
	updates["updated_at"] = time.Now()

	result := d.db.Model(&models.Order{}).
		Where("order_id = ? AND status IN ?", orderID, expect).
		Updates(updates)
	if result.Error != nil {
		return nil, false, result.Error
	}

	order, err := d.FindOrderByOrderID(orderID)
	if err != nil {
		return nil, false, err
	}
	return order, result.RowsAffected > 0, nil
}
