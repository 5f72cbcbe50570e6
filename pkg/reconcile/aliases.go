package reconcile

// Alias lists, most specific first. Lookups are first-match-wins, so the
// order of each list is significant.

// Order-level fields.
var (
	OrderIDKeys     = []string{"order_id", "id"}
	OrderPlacedKeys = []string{"date_added", "placed_at", "created_at", "order_date", "date_created"}
	OrderStatusKeys = []string{"status", "order_status", "status_name"}

	CustomerNameKeys      = []string{"customer_name", "customer_full_name", "buyer_name"}
	CustomerFirstNameKeys = []string{"customer_first_name", "buyer_first_name"}
	CustomerLastNameKeys  = []string{"customer_last_name", "buyer_last_name"}
	CustomerEmailKeys     = []string{"customer_email", "buyer_email", "email"}
	CustomerPhoneKeys     = []string{"customer_phone", "buyer_phone", "phone"}

	OrderShippingCostKeys   = []string{"shipping_landed_cost", "shipping_cost", "shipping_total"}
	OrderShippingMethodKeys = []string{"shipping_method", "ship_method", "shipping_service"}
	OrderShipDateKeys       = []string{"ship_date", "shipped_at", "date_shipped"}
)

// Nested order objects per role. Address and contact objects share key
// names upstream, so the lists overlap with different precedence.
var (
	BillingAddressKeys  = []string{"billing_address", "billing", "billing_contact"}
	BillingContactKeys  = []string{"billing_contact", "billing", "billing_address"}
	ShippingAddressKeys = []string{"shipping_address", "shipping", "shipping_contact"}
	ShippingContactKeys = []string{"shipping_contact", "shipping", "shipping_address"}
)

// Fields inside address / contact objects.
var (
	FirstNameKeys = []string{"first_name", "firstname", "first", "given_name"}
	LastNameKeys  = []string{"last_name", "lastname", "last", "family_name", "surname"}
	FullNameKeys  = []string{"name", "full_name", "fullname"}
	CompanyKeys   = []string{"company", "company_name", "business_name", "organization"}
	Address1Keys  = []string{"address1", "address_1", "address_line_1", "street1", "street", "line1"}
	Address2Keys  = []string{"address2", "address_2", "address_line_2", "street2", "line2"}
	CityKeys      = []string{"city", "town"}
	StateKeys     = []string{"state", "state_code", "province", "region"}
	ZipKeys       = []string{"zip", "zip_code", "postal_code", "postcode", "zipcode"}
	CountryKeys   = []string{"country", "country_code", "country_name"}
	EmailKeys     = []string{"email", "email_address"}
	PhoneKeys     = []string{"phone", "phone_number", "telephone", "mobile"}
)

// Line item fields.
var (
	LineItemIDKeys      = []string{"line_item_id", "order_line_item_id", "id"}
	QuantityKeys        = []string{"quantity", "qty", "quantity_ordered"}
	ProductNameKeys     = []string{"product_name", "name", "title", "product_title"}
	ProductOptionsKeys  = []string{"product_options", "options", "variant_options"}
	PersonalizationKeys = []string{"product_personalization", "personalization", "personalizations", "customization"}
	LineItemAddressKeys = []string{"shipping_address", "ship_to"}
)

// Shipment fields.
var (
	ShipmentLineItemIDsKeys = []string{"line_item_ids", "order_line_item_ids", "item_ids"}
	ShipmentLineItemsKeys   = []string{"line_items", "items", "order_line_items"}
	TrackingNumberKeys      = []string{"tracking_number", "tracking_no", "tracking"}
	TrackingNumbersKeys     = []string{"tracking_numbers"}
	ShippingCostKeys        = []string{"shipping_landed_cost", "landed_cost", "shipping_cost", "cost"}
	ShippingMethodKeys      = []string{"shipping_method", "ship_method", "carrier_service", "service_name", "service"}
	ShipDateKeys            = []string{"ship_date", "shipped_at", "date_shipped", "shipped_on", "created_at"}
	ShipmentAddressKeys     = []string{"shipping_address", "ship_to", "address", "destination"}
	RecipientNameKeys       = []string{"recipient_name", "ship_to_name", "recipient"}
)

// Product option and personalization entries.
var (
	OptionNameKeys  = []string{"option_name", "name", "label", "title"}
	OptionValueKeys = []string{"sub_option_name", "value", "option_value", "selection"}

	PersonalizationTitleKeys = []string{"title", "name", "label", "field"}
	PersonalizationValueKeys = []string{"value", "text"}
	AttributesKeys           = []string{"attributes", "attrs"}
	AttributeNameKeys        = []string{"name", "label", "key"}
	AttributeValueKeys       = []string{"value", "text"}
	PriceTypeKeys            = []string{"price_type", "type"}
	PriceAmountKeys          = []string{"price", "amount", "price_amount"}
)
