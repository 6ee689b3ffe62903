package wfs

import (
	"encoding/xml"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

// TransactionAction is one operation of a Transaction: an *Insert, *Update,
// *Delete or *Native. Actions keep their document order.
type TransactionAction interface {
	Element
	ActionHandle() string
}

type Transaction struct {
	XMLName xml.Name `xml:"http://www.opengis.net/wfs Transaction"`
	BaseRequest
	LockID        string              `xml:"http://www.opengis.net/wfs LockId,omitempty"`
	Actions       []TransactionAction `xml:",any"`
	ReleaseAction Optional[AllSome]   `xml:"releaseAction,attr"`
}

func NewTransaction() *Transaction {
	return &Transaction{
		BaseRequest:   newBaseRequest(),
		ReleaseAction: WithDefault(AllSomeAll),
	}
}

func (*Transaction) Kind() Kind          { return KindTransaction }
func (*Transaction) RequestName() string { return "Transaction" }

// TypeNames returns the feature types the transaction touches, in action
// order. Inserted features are named by their element name.
func (t *Transaction) TypeNames() []QName {
	var names []QName
	for _, action := range t.Actions {
		switch a := action.(type) {
		case *Insert:
			for i := range a.Features {
				names = append(names, a.Features[i].Name())
			}
		case *Update:
			names = append(names, a.TypeName)
		case *Delete:
			names = append(names, a.TypeName)
		}
	}
	return names
}

func (t *Transaction) Inserts() []*Insert {
	var inserts []*Insert
	for _, action := range t.Actions {
		if v, ok := action.(*Insert); ok {
			inserts = append(inserts, v)
		}
	}
	return inserts
}

func (t *Transaction) Updates() []*Update {
	var updates []*Update
	for _, action := range t.Actions {
		if v, ok := action.(*Update); ok {
			updates = append(updates, v)
		}
	}
	return updates
}

func (t *Transaction) Deletes() []*Delete {
	var deletes []*Delete
	for _, action := range t.Actions {
		if v, ok := action.(*Delete); ok {
			deletes = append(deletes, v)
		}
	}
	return deletes
}

func (t *Transaction) Natives() []*Native {
	var natives []*Native
	for _, action := range t.Actions {
		if v, ok := action.(*Native); ok {
			natives = append(natives, v)
		}
	}
	return natives
}

func (t *Transaction) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	fresh := NewTransaction()
	v := struct {
		BaseRequest
		LockID        string               `xml:"LockId"`
		Actions       []transactionElement `xml:",any"`
		ReleaseAction Optional[AllSome]    `xml:"releaseAction,attr"`
	}{
		BaseRequest:   fresh.BaseRequest,
		ReleaseAction: fresh.ReleaseAction,
	}
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}

	*t = Transaction{
		XMLName:       start.Name,
		BaseRequest:   v.BaseRequest,
		LockID:        v.LockID,
		ReleaseAction: v.ReleaseAction,
	}
	for _, e := range v.Actions {
		if e.action != nil {
			t.Actions = append(t.Actions, e.action)
		}
	}
	return nil
}

type transactionElement struct {
	action TransactionAction
}

func (e *transactionElement) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var action TransactionAction
	switch start.Name.Local {
	case "Insert":
		action = NewInsert()
	case "Update":
		action = NewUpdate()
	case "Delete":
		action = &Delete{}
	case "Native":
		action = &Native{}
	default:
		return d.Skip()
	}

	if err := d.DecodeElement(action, &start); err != nil {
		return err
	}
	e.action = action
	return nil
}

type Insert struct {
	XMLName     xml.Name                       `xml:"http://www.opengis.net/wfs Insert"`
	Features    []Node                         `xml:",any"`
	Handle      string                         `xml:"handle,attr,omitempty"`
	IDGen       Optional[IdentifierGeneration] `xml:"idgen,attr"`
	InputFormat Optional[string]               `xml:"inputFormat,attr"`
	SRSName     string                         `xml:"srsName,attr,omitempty"`
}

func NewInsert() *Insert {
	return &Insert{
		IDGen:       WithDefault(IDGenGenerateNew),
		InputFormat: WithDefault(DefaultOutputFormat),
	}
}

func (r *Insert) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Insert
	v := (*plain)(NewInsert())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = Insert(*v)
	return nil
}

func (*Insert) Kind() Kind             { return KindInsert }
func (r *Insert) ActionHandle() string { return r.Handle }

type Update struct {
	XMLName     xml.Name         `xml:"http://www.opengis.net/wfs Update"`
	Properties  []Property       `xml:"http://www.opengis.net/wfs Property"`
	Filter      *ogc.Filter      `xml:"http://www.opengis.net/ogc Filter,omitempty"`
	Handle      string           `xml:"handle,attr,omitempty"`
	InputFormat Optional[string] `xml:"inputFormat,attr"`
	SRSName     string           `xml:"srsName,attr,omitempty"`
	TypeName    QName            `xml:"typeName,attr"`
}

func NewUpdate() *Update {
	return &Update{InputFormat: WithDefault(DefaultUpdateInputFormat)}
}

func (r *Update) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain Update
	v := (*plain)(NewUpdate())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = Update(*v)
	return nil
}

func (*Update) Kind() Kind             { return KindUpdate }
func (r *Update) ActionHandle() string { return r.Handle }

// Property is a single property assignment of an Update. A nil Value sets
// the property to null.
type Property struct {
	Name  QName `xml:"http://www.opengis.net/wfs Name"`
	Value *Node `xml:"http://www.opengis.net/wfs Value,omitempty"`
}

func (*Property) Kind() Kind { return KindProperty }

type Delete struct {
	XMLName  xml.Name    `xml:"http://www.opengis.net/wfs Delete"`
	Filter   *ogc.Filter `xml:"http://www.opengis.net/ogc Filter,omitempty"`
	Handle   string      `xml:"handle,attr,omitempty"`
	TypeName QName       `xml:"typeName,attr"`
}

func (*Delete) Kind() Kind             { return KindDelete }
func (r *Delete) ActionHandle() string { return r.Handle }

// Native carries a vendor specific operation verbatim.
type Native struct {
	XMLName      xml.Name       `xml:"http://www.opengis.net/wfs Native"`
	SafeToIgnore Optional[bool] `xml:"safeToIgnore,attr"`
	VendorID     string         `xml:"vendorId,attr"`
	Content      []byte         `xml:",innerxml"`
}

func (*Native) Kind() Kind           { return KindNative }
func (*Native) ActionHandle() string { return "" }
