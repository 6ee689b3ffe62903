package ogc

import (
	"fmt"
	"strings"
)

type SortOrder string

const (
	SortAscending  SortOrder = "ASC"
	SortDescending SortOrder = "DESC"
)

type SortBy struct {
	Properties []SortProperty `xml:"http://www.opengis.net/ogc SortProperty"`
}

type SortProperty struct {
	PropertyName string    `xml:"http://www.opengis.net/ogc PropertyName"`
	SortOrder    SortOrder `xml:"http://www.opengis.net/ogc SortOrder,omitempty"`
}

// ParseSortBy parses the SORTBY key-value-pair notation:
// "name[ A|D|ASC|DESC][,name[ A|D|ASC|DESC]]...".
func ParseSortBy(s string) (*SortBy, error) {
	sortBy := &SortBy{}
	for _, item := range strings.Split(s, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, fmt.Errorf("invalid sort property %q", item)
		}

		property := SortProperty{PropertyName: fields[0]}
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "A", "ASC":
				property.SortOrder = SortAscending
			case "D", "DESC":
				property.SortOrder = SortDescending
			default:
				return nil, fmt.Errorf("invalid sort order %q", fields[1])
			}
		}
		sortBy.Properties = append(sortBy.Properties, property)
	}
	return sortBy, nil
}

func (s *SortBy) String() string {
	items := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		if p.SortOrder == "" {
			items = append(items, p.PropertyName)
			continue
		}
		items = append(items, p.PropertyName+" "+string(p.SortOrder))
	}
	return strings.Join(items, ",")
}
