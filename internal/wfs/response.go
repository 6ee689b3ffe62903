package wfs

import (
	"encoding/xml"
	"time"

	"github.com/delta10/wfs-filter-proxy/internal/ogc"
)

// FeatureCollection is the GetFeature response. Members holds the
// gml:featureMember(s) and any other child element verbatim.
type FeatureCollection struct {
	XMLName          xml.Name   `xml:"http://www.opengis.net/wfs FeatureCollection"`
	Attrs            []xml.Attr `xml:",any,attr"`
	Members          []Node     `xml:",any"`
	LockID           string     `xml:"lockId,attr,omitempty"`
	TimeStamp        *time.Time `xml:"timeStamp,attr,omitempty"`
	NumberOfFeatures *uint64    `xml:"numberOfFeatures,attr,omitempty"`
}

func (c *FeatureCollection) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain FeatureCollection
	var v plain
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	v.Attrs = ogc.PortableAttrs(v.Attrs)
	*c = FeatureCollection(v)
	return nil
}

func (*FeatureCollection) Kind() Kind { return KindFeatureCollection }

type LockFeatureResponse struct {
	XMLName           xml.Name           `xml:"http://www.opengis.net/wfs LockFeatureResponse"`
	LockID            string             `xml:"http://www.opengis.net/wfs LockId"`
	FeaturesLocked    *FeaturesLocked    `xml:"http://www.opengis.net/wfs FeaturesLocked,omitempty"`
	FeaturesNotLocked *FeaturesNotLocked `xml:"http://www.opengis.net/wfs FeaturesNotLocked,omitempty"`
}

func (*LockFeatureResponse) Kind() Kind { return KindLockFeatureResponse }

type FeaturesLocked struct {
	FeatureIDs []ogc.FeatureID `xml:"http://www.opengis.net/ogc FeatureId"`
}

func (*FeaturesLocked) Kind() Kind { return KindFeaturesLocked }

type FeaturesNotLocked struct {
	FeatureIDs []ogc.FeatureID `xml:"http://www.opengis.net/ogc FeatureId"`
}

func (*FeaturesNotLocked) Kind() Kind { return KindFeaturesNotLocked }

type TransactionResponse struct {
	XMLName       xml.Name            `xml:"http://www.opengis.net/wfs TransactionResponse"`
	Summary       TransactionSummary  `xml:"http://www.opengis.net/wfs TransactionSummary"`
	Results       *TransactionResults `xml:"http://www.opengis.net/wfs TransactionResults,omitempty"`
	InsertResults *InsertResults      `xml:"http://www.opengis.net/wfs InsertResults,omitempty"`
	Version       Optional[string]    `xml:"version,attr"`
}

func NewTransactionResponse() *TransactionResponse {
	return &TransactionResponse{Version: WithDefault(Version)}
}

func (r *TransactionResponse) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	type plain TransactionResponse
	v := (*plain)(NewTransactionResponse())
	if err := d.DecodeElement(v, &start); err != nil {
		return err
	}
	*r = TransactionResponse(*v)
	return nil
}

// MarshalXML always writes the version attribute, which the schema requires.
func (r TransactionResponse) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	type plain TransactionResponse
	v := plain(r)
	if !v.Version.IsSet() {
		v.Version.Set(v.Version.Get())
	}
	return e.EncodeElement(v, start)
}

func (*TransactionResponse) Kind() Kind { return KindTransactionResponse }

// AddInserted records an inserted feature and bumps the summary.
func (r *TransactionResponse) AddInserted(handle string, fids ...string) {
	if r.InsertResults == nil {
		r.InsertResults = &InsertResults{}
	}
	feature := InsertedFeature{Handle: handle}
	for _, fid := range fids {
		feature.FeatureIDs = append(feature.FeatureIDs, ogc.FeatureID{FID: fid})
	}
	r.InsertResults.Features = append(r.InsertResults.Features, feature)
	r.Summary.TotalInserted = add(r.Summary.TotalInserted, 1)
}

// TransactionSummary counts are nil when the server did not report them.
type TransactionSummary struct {
	TotalInserted *uint64 `xml:"http://www.opengis.net/wfs totalInserted,omitempty"`
	TotalUpdated  *uint64 `xml:"http://www.opengis.net/wfs totalUpdated,omitempty"`
	TotalDeleted  *uint64 `xml:"http://www.opengis.net/wfs totalDeleted,omitempty"`
}

func (*TransactionSummary) Kind() Kind { return KindTransactionSummary }

func add(n *uint64, delta uint64) *uint64 {
	var v uint64
	if n != nil {
		v = *n
	}
	v += delta
	return &v
}

type TransactionResults struct {
	Handle  string   `xml:"handle,attr,omitempty"`
	Actions []Action `xml:"http://www.opengis.net/wfs Action"`
}

func (*TransactionResults) Kind() Kind { return KindTransactionResults }

// Action reports the failure of a single transaction action.
type Action struct {
	Message string `xml:"http://www.opengis.net/wfs Message,omitempty"`
	Code    string `xml:"code,attr,omitempty"`
	Locator string `xml:"locator,attr"`
}

func (*Action) Kind() Kind { return KindAction }

type InsertResults struct {
	Features []InsertedFeature `xml:"http://www.opengis.net/wfs Feature"`
}

func (*InsertResults) Kind() Kind { return KindInsertResults }

type InsertedFeature struct {
	FeatureIDs []ogc.FeatureID `xml:"http://www.opengis.net/ogc FeatureId"`
	Handle     string          `xml:"handle,attr,omitempty"`
}

func (*InsertedFeature) Kind() Kind { return KindInsertedFeature }
