package model

type ClassType struct {
	ID      string   `json:"id" bson:"_id,omitempty"`
	Name    string   `json:"name" bson:"name"`
	Aliases []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}
