package legacy

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	Street   string `bson:"street,omitempty" json:"street,omitempty"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	Province string `bson:"province,omitempty" json:"province,omitempty"`
	ZipCode  any    `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
}

// Account is a record of the document store that predates the relational
// users table. The two are not kept in sync.
type Account struct {
	ID            primitive.ObjectID `bson:"_id" json:"_id"`
	FirstName     string             `bson:"first_name" json:"first_name" validate:"required"`
	LastName      string             `bson:"last_name" json:"last_name" validate:"required"`
	Gender        string             `bson:"gender,omitempty" json:"gender,omitempty" validate:"omitempty,oneof=female male"`
	Age           *int               `bson:"age,omitempty" json:"age,omitempty"`
	Birthdate     *time.Time         `bson:"birthdate,omitempty" json:"birthdate,omitempty"`
	ContactNumber string             `bson:"contact_number,omitempty" json:"contact_number,omitempty"`
	Address       *Address           `bson:"address,omitempty" json:"address,omitempty"`
	Username      string             `bson:"username,omitempty" json:"username,omitempty"`
	Password      string             `bson:"password,omitempty" json:"password,omitempty"`
	Role          string             `bson:"role" json:"role" validate:"required,oneof=admin doctor patient"`
	DateCreated   *time.Time         `bson:"date_created,omitempty" json:"date_created,omitempty"`
	DateUpdated   *time.Time         `bson:"date_updated,omitempty" json:"date_updated,omitempty"`
}

type Message struct {
	ID          string    `bson:"_id" json:"_id" validate:"required"`
	Sender      string    `bson:"sender" json:"sender" validate:"required"`
	Receiver    string    `bson:"receiver" json:"receiver" validate:"required"`
	Message     string    `bson:"message" json:"message" validate:"required"`
	Status      string    `bson:"status" json:"status" validate:"required,oneof=sent delivered read"`
	DateCreated time.Time `bson:"date_created" json:"date_created" validate:"required"`
}

var accountFields = fieldSet(
	"first_name", "last_name", "gender", "age", "birthdate", "contact_number", "address",
	"username", "password", "role", "date_created", "date_updated",
)

var messageFields = fieldSet("sender", "receiver", "message", "status", "date_created")

var timeFields = fieldSet("birthdate", "date_created", "date_updated")

func fieldSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// sanitize keeps the known fields of a request body and turns timestamp
// strings into dates so they are stored with the right BSON type.
func sanitize(body map[string]any, allowed map[string]struct{}) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if _, ok := allowed[k]; !ok {
			continue
		}
		if s, isString := v.(string); isString {
			if _, isTime := timeFields[k]; isTime {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					v = t
				}
			}
		}
		out[k] = v
	}
	return out
}
