package services

import (
	"context"
	"errors"
	"strings"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountService handles registration, login and logout for every role.
type AccountService struct {
	Options
}

// AddressInput is the full address sent on registration.
type AddressInput struct {
	DoorNo      string           `json:"doorNo"`
	Street      string           `json:"street"`
	Landmarks   string           `json:"landmarks"`
	TownCity    string           `json:"townCity"`
	State       string           `json:"state"`
	Pincode     string           `json:"pincode" binding:"omitempty,pincode"`
	Coordinates *models.GeoPoint `json:"coordinates"`
}

func (a *AddressInput) complete() bool {
	return a != nil && a.DoorNo != "" && a.Street != "" && a.TownCity != "" &&
		a.State != "" && a.Pincode != "" && a.Coordinates != nil
}

func (a *AddressInput) model() models.Address {
	return models.Address{
		DoorNo:      a.DoorNo,
		Street:      a.Street,
		Landmarks:   a.Landmarks,
		TownCity:    a.TownCity,
		State:       a.State,
		Pincode:     a.Pincode,
		Coordinates: *a.Coordinates,
	}
}

type RegisterInput struct {
	Username     string        `json:"username"`
	Email        string        `json:"email" binding:"omitempty,email"`
	Password     string        `json:"password"`
	MobileNumber string        `json:"mobileNumber"`
	Address      *AddressInput `json:"address"`
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.MobileNumber = strings.TrimSpace(in.MobileNumber)
	if in.Username == "" || in.Email == "" || in.Password == "" || in.MobileNumber == "" || !in.Address.complete() {
		return invalidInput("All fields are required")
	}
	if looksLikeEmail(in.Username) {
		return invalidInput("Username cannot contain @")
	}
	return nil
}

// looksLikeEmail decides whether a login identifier is matched against
// emails or names. Names never contain @.
func looksLikeEmail(s string) bool {
	return strings.Contains(s, "@")
}

// RegisterUser creates a recipient organisation account.
func (s *AccountService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	if err := ensureUnique(db, &models.User{}, "username", in.Username, "Username already exists"); err != nil {
		return nil, err
	}
	if err := ensureUnique(db, &models.User{}, "email", in.Email, "User-Email already exists"); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		Address:      in.Address.model(),
	}
	if err := user.SetPassword(in.Password, s.Config.BcryptCost); err != nil {
		return nil, err
	}

	if err := db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrDuplicate, "Username already exists")
		}
		return nil, err
	}

	s.Log.Info("user registered", zap.Uint("id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// RegisterDonor creates a donor account.
func (s *AccountService) RegisterDonor(ctx context.Context, in RegisterInput) (*models.Donor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	if err := ensureUnique(db, &models.Donor{}, "username", in.Username, "Username already exists"); err != nil {
		return nil, err
	}
	if err := ensureUnique(db, &models.Donor{}, "email", in.Email, "Donor-Email already exists"); err != nil {
		return nil, err
	}

	donor := &models.Donor{
		Username:     in.Username,
		Email:        in.Email,
		MobileNumber: in.MobileNumber,
		Address:      in.Address.model(),
	}
	if err := donor.SetPassword(in.Password, s.Config.BcryptCost); err != nil {
		return nil, err
	}

	if err := db.Create(donor).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrDuplicate, "Username already exists")
		}
		return nil, err
	}

	s.Log.Info("donor registered", zap.Uint("id", donor.ID), zap.String("username", donor.Username))
	return donor, nil
}

type RegisterDeliveryBoyInput struct {
	DeliveryBoyName string           `json:"deliveryBoyName"`
	Email           string           `json:"email" binding:"omitempty,email"`
	Password        string           `json:"password"`
	MobileNumber    string           `json:"mobileNumber"`
	CurrentLocation *models.GeoPoint `json:"currentLocation"`
}

// RegisterDeliveryBoy adds a delivery boy to the calling user's fleet.
func (s *AccountService) RegisterDeliveryBoy(ctx context.Context, owner Principal, in RegisterDeliveryBoyInput) (*models.DeliveryBoy, error) {
	in.DeliveryBoyName = strings.TrimSpace(in.DeliveryBoyName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.DeliveryBoyName == "" || in.Email == "" || in.Password == "" || strings.TrimSpace(in.MobileNumber) == "" {
		return nil, invalidInput("All fields are required")
	}
	if looksLikeEmail(in.DeliveryBoyName) {
		return nil, invalidInput("Delivery boy name cannot contain @")
	}

	boy := &models.DeliveryBoy{
		DeliveryBoyName: in.DeliveryBoyName,
		Email:           in.Email,
		MobileNumber:    strings.TrimSpace(in.MobileNumber),
		UserUsername:    owner.Username,
		Status:          models.DeliveryBoyAvailable,
	}
	if err := boy.SetPassword(in.Password, s.Config.BcryptCost); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lookup(forUpdate(tx).Where("username = ?", owner.Username).First(&user), "User not found"); err != nil {
			return err
		}

		if err := ensureUnique(tx, &models.DeliveryBoy{}, "delivery_boy_name", boy.DeliveryBoyName, "Delivery boy name already exists"); err != nil {
			return err
		}
		if err := ensureUnique(tx, &models.DeliveryBoy{}, "email", boy.Email, "Delivery-Boy-Email already exists"); err != nil {
			return err
		}

		boy.CurrentLocation = user.Address.Coordinates
		if in.CurrentLocation != nil {
			boy.CurrentLocation = *in.CurrentLocation
		}
		if err := tx.Create(boy).Error; err != nil {
			if isUniqueViolation(err) {
				return newError(ErrDuplicate, "Delivery boy name already exists")
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.DeliveryBoy{}).Where("user_username = ?", owner.Username).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("registered_delivery_boys_count", count).Error
	})
	if err != nil {
		return nil, err
	}

	err = s.Store.IndexAvailable(ctx, boy.UserUsername, boy.ID, boy.CurrentLocation.Lat, boy.CurrentLocation.Lng)
	s.warn("index delivery boy", err, zap.Uint("deliveryBoyId", boy.ID))

	s.Log.Info("delivery boy registered", zap.Uint("id", boy.ID), zap.String("owner", owner.Username))
	return boy, nil
}

// ensureUnique returns a duplicate Error when column already holds value.
func ensureUnique(db *gorm.DB, model interface{}, column, value, msg string) error {
	var count int64
	if err := db.Model(model).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return newError(ErrDuplicate, "%s", msg)
	}
	return nil
}

// Login checks credentials and issues a token for the role.
func (s *AccountService) Login(ctx context.Context, role, identifier, password string) (string, *utils.Claims, models.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", nil, nil, invalidInput("All fields are required")
	}

	account, err := s.findAccount(ctx, role, identifier)
	if err != nil {
		return "", nil, nil, err
	}
	if err := account.CheckPassword(password); err != nil {
		return "", nil, nil, newError(ErrInvalidCredentials, "Invalid credentials")
	}

	token, claims, err := utils.GenerateToken(s.Config.JWTSecret, s.Config.JWTExpiry, account.AccountID(), account.AccountName(), role)
	if err != nil {
		return "", nil, nil, err
	}
	return token, claims, account, nil
}

func (s *AccountService) findAccount(ctx context.Context, role, identifier string) (models.Account, error) {
	db := s.DB.WithContext(ctx)

	nameColumn := "username"
	if role == models.RoleDeliveryBoy {
		nameColumn = "delivery_boy_name"
	}
	if looksLikeEmail(identifier) {
		db = db.Where("email = ?", strings.ToLower(identifier))
	} else {
		db = db.Where(nameColumn+" = ?", identifier)
	}

	var (
		account models.Account
		result  *gorm.DB
	)
	switch role {
	case models.RoleUser:
		user := &models.User{}
		result = db.First(user)
		account = user
	case models.RoleDonor:
		donor := &models.Donor{}
		result = db.First(donor)
		account = donor
	case models.RoleDeliveryBoy:
		boy := &models.DeliveryBoy{}
		result = db.First(boy)
		account = boy
	default:
		return nil, invalidInput("Unknown role %s", role)
	}

	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrInvalidCredentials, "Invalid credentials")
		}
		return nil, err
	}
	return account, nil
}

// Logout revokes the token id until the token would expire.
func (s *AccountService) Logout(ctx context.Context, claims *utils.Claims) error {
	if claims == nil {
		return nil
	}
	err := s.Store.RevokeToken(ctx, claims.ID, claims.Remaining())
	if errors.Is(err, ErrCacheUnavailable) {
		s.Log.Warn("token revocation skipped, redis not configured", zap.String("username", claims.Username))
		return nil
	}
	return err
}

// RegisterFCMToken stores the device token used for push notifications.
func (s *AccountService) RegisterFCMToken(ctx context.Context, p Principal, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalidInput("fcmToken is required")
	}
	return s.setFCMToken(ctx, p, token)
}

// RemoveFCMToken stops push notifications for the caller.
func (s *AccountService) RemoveFCMToken(ctx context.Context, p Principal) error {
	return s.setFCMToken(ctx, p, "")
}

func (s *AccountService) setFCMToken(ctx context.Context, p Principal, token string) error {
	var model interface{}
	switch p.Role {
	case models.RoleUser:
		model = &models.User{}
	case models.RoleDonor:
		model = &models.Donor{}
	case models.RoleDeliveryBoy:
		model = &models.DeliveryBoy{}
	default:
		return forbidden("Unknown role")
	}

	result := s.DB.WithContext(ctx).Model(model).Where("id = ?", p.ID).Update("fcm_token", token)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("Account not found")
	}
	return nil
}
