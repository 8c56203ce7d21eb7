package server_test

import "marketplace/internal/domain/model"

func modelAddress() model.Address {
	return model.Address{
		Name:       "Site office",
		PostalCode: "12345",
		City:       "Springfield",
		Line1:      "12 Harbor Rd",
	}
}
