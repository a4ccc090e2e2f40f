package moments

// Field names a multipart form field understood by the remote store.
type Field string

const (
	FieldTitle        Field = "moment-title"
	FieldDate         Field = "moment-date"
	FieldDescription  Field = "moment-description"
	FieldFeelings     Field = "moment-feelings"
	FieldImage        Field = "moment-image"
	FieldImageCaption Field = "moment-image-caption"
)

var fieldOrder = []Field{
	FieldTitle,
	FieldDate,
	FieldDescription,
	FieldFeelings,
	FieldImage,
	FieldImageCaption,
}

// ImageAttachment is a file chosen by the user during the current edit session.
type ImageAttachment struct {
	Filename string
	Content  []byte
}

// Form is a snapshot of the add or edit form as submitted by the user.
type Form struct {
	Title        string
	Date         string
	Description  string
	Feelings     []Feeling
	ImageCaption string
	Image        *ImageAttachment
}

// FormFromMoment seeds an edit form with the stored values of a moment.
func FormFromMoment(moment Moment) Form {
	feelings := make([]Feeling, len(moment.Feelings))
	copy(feelings, moment.Feelings)
	return Form{
		Title:        moment.Title,
		Date:         moment.Date,
		Description:  moment.Description,
		Feelings:     feelings,
		ImageCaption: moment.ImageCaption,
	}
}

// Payload maps field names to the values to transmit. The image attachment is
// carried separately from the text values.
type Payload struct {
	values map[Field]string
	image  *ImageAttachment
}

func newPayload() Payload {
	return Payload{values: make(map[Field]string)}
}

func (p *Payload) set(field Field, value string) {
	if p.values == nil {
		p.values = make(map[Field]string)
	}
	p.values[field] = value
}

func (p *Payload) drop(field Field) {
	delete(p.values, field)
	if field == FieldImage {
		p.image = nil
	}
}

// Value returns the text value of a field and whether it is present.
func (p Payload) Value(field Field) (string, bool) {
	value, ok := p.values[field]
	return value, ok
}

// Has reports whether a field is part of the payload.
func (p Payload) Has(field Field) bool {
	if field == FieldImage {
		return p.image != nil
	}
	_, ok := p.values[field]
	return ok
}

// Image returns the attached image, if any.
func (p Payload) Image() *ImageAttachment {
	return p.image
}

// Fields lists the present fields in wire order.
func (p Payload) Fields() []Field {
	fields := make([]Field, 0, len(fieldOrder))
	for _, field := range fieldOrder {
		if p.Has(field) {
			fields = append(fields, field)
		}
	}
	return fields
}

// Len returns the number of present fields.
func (p Payload) Len() int {
	return len(p.Fields())
}

// Empty reports whether there is nothing to submit.
func (p Payload) Empty() bool {
	return p.Len() == 0
}

// BuildCreatePayload returns the full field set for a new moment.
func BuildCreatePayload(form Form) Payload {
	payload := fullPayload(form)
	if len(NormalizeFeelings(form.Feelings)) == 0 {
		payload.drop(FieldFeelings)
	}
	if form.Image == nil {
		payload.drop(FieldImageCaption)
	}
	return payload
}

// BuildUpdatePayload returns only the fields of form that differ from original.
// An empty payload means the edit changed nothing.
func BuildUpdatePayload(original Moment, form Form) Payload {
	payload := fullPayload(form)

	dropIfUnchanged := func(field Field, originalValue string) {
		if value, ok := payload.Value(field); ok && value == originalValue {
			payload.drop(field)
		}
	}
	dropIfUnchanged(FieldTitle, original.Title)
	dropIfUnchanged(FieldDate, original.Date)
	dropIfUnchanged(FieldDescription, original.Description)

	if len(SymmetricDifference(form.Feelings, original.Feelings)) == 0 {
		payload.drop(FieldFeelings)
	}

	// a new image always travels with its caption
	if form.Image == nil {
		dropIfUnchanged(FieldImageCaption, original.ImageCaption)
	}

	return payload
}

func fullPayload(form Form) Payload {
	payload := newPayload()
	payload.set(FieldTitle, form.Title)
	payload.set(FieldDate, form.Date)
	payload.set(FieldDescription, form.Description)
	payload.set(FieldFeelings, JoinFeelings(form.Feelings))
	payload.set(FieldImageCaption, form.ImageCaption)
	if form.Image != nil {
		attachment := *form.Image
		payload.image = &attachment
	}
	return payload
}
