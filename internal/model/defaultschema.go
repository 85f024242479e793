package model

// DefaultSchema returns the Schema for the representative FHIR R4 resource
// set router.Default() routes, covering the common search parameters the
// teacher's capBuilder.AddResource(...) calls enumerate per resource type
// (name/identifier/status/date/token/reference), translated from SMART
// SearchParam descriptors into Schema Elements. Real deployments load this
// from the FHIR SearchParameter registry (external, per spec §1); this is
// the static default spec §9's startup-singleton wiring constructs when no
// registry is configured.
func DefaultSchema() *Schema {
	return NewSchema(map[string]map[string]Element{
		"Patient": {
			"identifier": {Path: "identifier", Type: ElementIdentifier},
			"name":       {Path: "name", Type: ElementHumanName},
			"family":     {Path: "name.family", Type: ElementPrimitiveString},
			"given":      {Path: "name.given", Type: ElementPrimitiveString},
			"gender":     {Path: "gender", Type: ElementPrimitiveCode},
			"birthdate":  {Path: "birthDate", Type: ElementDate},
			"active":     {Path: "active", Type: ElementPrimitiveBoolean},
		},
		"RelatedPerson": {
			"identifier":   {Path: "identifier", Type: ElementIdentifier},
			"name":         {Path: "name", Type: ElementHumanName},
			"patient":      {Path: "patient", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"relationship": {Path: "relationship", Type: ElementCodeableConcept},
		},
		"Practitioner": {
			"identifier": {Path: "identifier", Type: ElementIdentifier},
			"name":       {Path: "name", Type: ElementHumanName},
			"family":     {Path: "name.family", Type: ElementPrimitiveString},
			"active":     {Path: "active", Type: ElementPrimitiveBoolean},
		},
		"Organization": {
			"name":   {Path: "name", Type: ElementPrimitiveString},
			"type":   {Path: "type", Type: ElementCodeableConcept},
			"active": {Path: "active", Type: ElementPrimitiveBoolean},
		},
		"Location": {
			"name":   {Path: "name", Type: ElementPrimitiveString},
			"status": {Path: "status", Type: ElementPrimitiveCode},
		},
		"Encounter": {
			"patient": {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject": {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"status":  {Path: "status", Type: ElementPrimitiveCode},
			"class":   {Path: "class", Type: ElementCoding},
			"date":    {Path: "period", Type: ElementPeriod},
		},
		"Condition": {
			"patient":         {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":         {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"encounter":       {Path: "encounter", Type: ElementReference, ReferenceTypes: []string{"Encounter"}},
			"clinical-status": {Path: "clinicalStatus", Type: ElementCodeableConcept},
			"category":        {Path: "category", Type: ElementCodeableConcept},
			"code":            {Path: "code", Type: ElementCodeableConcept},
			"onset-date":      {Path: "onset", Type: ElementDateTime, ChoiceTypes: []string{"dateTime", "Period"}},
		},
		"Observation": {
			"patient":        {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":        {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"encounter":      {Path: "encounter", Type: ElementReference, ReferenceTypes: []string{"Encounter"}},
			"category":       {Path: "category", Type: ElementCodeableConcept},
			"code":           {Path: "code", Type: ElementCodeableConcept},
			"status":         {Path: "status", Type: ElementPrimitiveCode},
			"date":           {Path: "effective", Type: ElementDateTime, ChoiceTypes: []string{"dateTime", "Period"}},
			"value-quantity": {Path: "valueQuantity", Type: ElementQuantity},
		},
		"Procedure": {
			"patient":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"encounter": {Path: "encounter", Type: ElementReference, ReferenceTypes: []string{"Encounter"}},
			"status":    {Path: "status", Type: ElementPrimitiveCode},
			"code":      {Path: "code", Type: ElementCodeableConcept},
			"date":      {Path: "performed", Type: ElementDateTime, ChoiceTypes: []string{"dateTime", "Period"}},
		},
		"MedicationRequest": {
			"patient":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"encounter": {Path: "encounter", Type: ElementReference, ReferenceTypes: []string{"Encounter"}},
			"status":    {Path: "status", Type: ElementPrimitiveCode},
			"intent":    {Path: "intent", Type: ElementPrimitiveCode},
			"code":      {Path: "medicationCodeableConcept", Type: ElementCodeableConcept},
			"date":      {Path: "authoredOn", Type: ElementDateTime},
		},
		"AllergyIntolerance": {
			"patient":         {Path: "patient", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"clinical-status": {Path: "clinicalStatus", Type: ElementCodeableConcept},
			"type":            {Path: "type", Type: ElementPrimitiveCode},
			"criticality":     {Path: "criticality", Type: ElementPrimitiveCode},
			"code":            {Path: "code", Type: ElementCodeableConcept},
		},
		"Immunization": {
			"patient":      {Path: "patient", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"status":       {Path: "status", Type: ElementPrimitiveCode},
			"vaccine-code": {Path: "vaccineCode", Type: ElementCodeableConcept},
			"date":         {Path: "occurrence", Type: ElementDateTime, ChoiceTypes: []string{"dateTime", "string"}},
		},
		"DiagnosticReport": {
			"patient":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":   {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"encounter": {Path: "encounter", Type: ElementReference, ReferenceTypes: []string{"Encounter"}},
			"status":    {Path: "status", Type: ElementPrimitiveCode},
			"category":  {Path: "category", Type: ElementCodeableConcept},
			"code":      {Path: "code", Type: ElementCodeableConcept},
			"date":      {Path: "effective", Type: ElementDateTime, ChoiceTypes: []string{"dateTime", "Period"}},
		},
		"CarePlan": {
			"patient":  {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject":  {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"status":   {Path: "status", Type: ElementPrimitiveCode},
			"category": {Path: "category", Type: ElementCodeableConcept},
		},
		"Provenance": {
			"target": {Path: "target", Type: ElementReference},
			"agent":  {Path: "agent.who", Type: ElementReference},
		},
		"DocumentReference": {
			"patient": {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"subject": {Path: "subject", Type: ElementReference, ReferenceTypes: []string{"Patient"}},
			"status":  {Path: "status", Type: ElementPrimitiveCode},
			"type":    {Path: "type", Type: ElementCodeableConcept},
			"date":    {Path: "date", Type: ElementDateTime},
		},
	})
}
