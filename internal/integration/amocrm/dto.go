package amocrm

// Wire types for POST /api/v4/leads. amoCRM expects an array of leads.

type fieldValue struct {
	Value string `json:"value"`
}

type customField struct {
	FieldCode string       `json:"field_code,omitempty"`
	FieldName string       `json:"field_name,omitempty"`
	Values    []fieldValue `json:"values"`
}

type contact struct {
	FirstName          string        `json:"first_name"`
	LastName           string        `json:"last_name,omitempty"`
	CustomFieldsValues []customField `json:"custom_fields_values,omitempty"`
}

type embedded struct {
	Contacts []contact `json:"contacts"`
}

type leadRequest struct {
	Name               string        `json:"name"`
	Price              int           `json:"price"`
	Embedded           embedded      `json:"_embedded"`
	CustomFieldsValues []customField `json:"custom_fields_values"`
}

type leadResponse struct {
	Embedded struct {
		Leads []struct {
			ID int `json:"id"`
		} `json:"leads"`
	} `json:"_embedded"`
}
