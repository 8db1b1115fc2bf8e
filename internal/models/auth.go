package models

// LoginRequest is the body of the owner login call.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	PushToken string `json:"expo_token,omitempty"`
}

// LoginResponse carries the bearer token and the owner profile.
type LoginResponse struct {
	Token string `json:"token"`
	User  *Owner `json:"user"`
}

// PushTokenRequest registers a device push token for an owner.
type PushTokenRequest struct {
	Token  string `json:"token" validate:"required"`
	UserID string `json:"userID" validate:"required"`
}

// StatusChangeRequest asks the backend to move an order to a new status.
type StatusChangeRequest struct {
	OrderID string `json:"orderID" validate:"required"`
	Status  Status `json:"status" validate:"required,oneof=pending preparing ready delivered"`
}

// DeliveredRequest confirms pickup of the order behind a scanned barcode.
type DeliveredRequest struct {
	OrderID string `json:"orderID" validate:"required"` // scan token, not the order _id
}
