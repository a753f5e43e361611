package transport

import (
	"regexp"
	"strings"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/service"
)

const minPasswordLen = 8

// Local part, then a domain of dot-separated labels that cannot start with a dot.
var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)

type errs []apperr.FieldError

func (e *errs) add(field, msg string) {
	*e = append(*e, apperr.FieldError{Field: field, Message: msg})
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (e *errs) email(field, value string) {
	if blank(value) {
		e.add(field, "Email is required")
		return
	}
	if !emailRe.MatchString(value) {
		e.add(field, "Invalid email")
	}
}

func (e *errs) password(field, value string) {
	if blank(value) {
		e.add(field, "Password is required")
		return
	}
	if len(value) < minPasswordLen {
		e.add(field, "Password must be at least 8 characters")
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   *uint  `json:"roleId"`
}

func (r SignupRequest) Validate() []apperr.FieldError {
	var e errs
	if blank(r.Username) {
		e.add("username", "Username is required")
	}
	e.email("email", r.Email)
	e.password("password", r.Password)
	if r.RoleID == nil || *r.RoleID == 0 {
		e.add("roleId", "Role id is required")
	}
	return e
}

func (r SignupRequest) Input() service.SignupInput {
	in := service.SignupInput{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	}
	if r.RoleID != nil {
		in.RoleID = *r.RoleID
	}
	return in
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() []apperr.FieldError {
	var e errs
	if blank(r.Username) {
		e.add("username", "Username is required")
	}
	if blank(r.Password) {
		e.add("password", "Password is required")
	}
	return e
}

// UpdateUserRequest is a partial update. Absent fields are left unchanged; a
// field sent as null or blank is rejected.
type UpdateUserRequest struct {
	Username Optional[string] `json:"username"`
	Email    Optional[string] `json:"email"`
	Password Optional[string] `json:"password"`
}

func (r UpdateUserRequest) Validate() []apperr.FieldError {
	var e errs
	if r.Username.Present && (r.Username.Null || blank(r.Username.Value)) {
		e.add("username", "Username is required")
	}
	if r.Email.Present {
		e.email("email", r.Email.Value)
	}
	if r.Password.Present {
		e.password("password", r.Password.Value)
	}
	return e
}

func (r UpdateUserRequest) Update() service.UserUpdate {
	upd := service.UserUpdate{Password: r.Password.Ptr()}
	if p := r.Username.Ptr(); p != nil {
		v := strings.TrimSpace(*p)
		upd.Username = &v
	}
	if p := r.Email.Ptr(); p != nil {
		v := strings.TrimSpace(*p)
		upd.Email = &v
	}
	return upd
}

type ProductRequest struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	CategoryID  *uint  `json:"categoryId"`
	Barcode     string `json:"barcode"`
}

func (r ProductRequest) Validate() []apperr.FieldError {
	var e errs
	if blank(r.Name) {
		e.add("name", "Name is required")
	}
	if blank(r.Barcode) {
		e.add("barcode", "Barcode is required")
	}
	if r.CategoryID == nil || *r.CategoryID == 0 {
		e.add("categoryId", "Category id is required")
	}
	return e
}

func (r ProductRequest) Input() service.ProductInput {
	in := service.ProductInput{
		Name:        strings.TrimSpace(r.Name),
		Brand:       strings.TrimSpace(r.Brand),
		Description: r.Description,
		Barcode:     strings.TrimSpace(r.Barcode),
	}
	if r.CategoryID != nil {
		in.CategoryID = *r.CategoryID
	}
	return in
}

// NameRequest creates a role or a category.
type NameRequest struct {
	Name string `json:"name"`
}

func (r NameRequest) Validate() []apperr.FieldError {
	var e errs
	if blank(r.Name) {
		e.add("name", "Name is required")
	}
	return e
}

func (r NameRequest) Input() string {
	return strings.TrimSpace(r.Name)
}

type UserResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleName string `json:"roleName"`
}

func NewUserResponse(v service.UserView) UserResponse {
	return UserResponse{Username: v.Username, Email: v.Email, RoleName: v.RoleName}
}

func NewUserResponses(vs []service.UserView) []UserResponse {
	out := make([]UserResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, NewUserResponse(v))
	}
	return out
}
