package amf

type Property struct {
	Name  string
	Value Value
}

// propertyList is the shared body of Object and ECMAArray. Names may repeat;
// lookups return the first match.
type propertyList struct {
	props []Property
}

func (l *propertyList) Add(name string, value Value) {
	l.props = append(l.props, Property{Name: name, Value: value})
}

func (l *propertyList) Get(name string) (Value, bool) {
	for _, p := range l.props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// Set replaces the first property called name, or appends one.
func (l *propertyList) Set(name string, value Value) {
	for i := range l.props {
		if l.props[i].Name == name {
			l.props[i].Value = value
			return
		}
	}
	l.Add(name, value)
}

func (l *propertyList) Delete(name string) bool {
	for i := range l.props {
		if l.props[i].Name == name {
			l.props = append(l.props[:i], l.props[i+1:]...)
			return true
		}
	}
	return false
}

func (l *propertyList) Len() int {
	return len(l.props)
}

func (l *propertyList) Properties() []Property {
	return l.props
}

// Object is the AMF0 anonymous object: an ordered list of named values.
type Object struct {
	propertyList
}

// ECMAArray has the same shape as Object; on the wire it also carries an
// informational element count.
type ECMAArray struct {
	propertyList
}

func NewObject(props ...Property) *Object {
	return &Object{propertyList{props: props}}
}

func NewECMAArray(props ...Property) *ECMAArray {
	return &ECMAArray{propertyList{props: props}}
}

type StrictArray struct {
	Items []Value
}

func NewStrictArray(items ...Value) *StrictArray {
	return &StrictArray{Items: items}
}

func (a *StrictArray) Len() int {
	return len(a.Items)
}

func (a *StrictArray) At(i int) (Value, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

func (a *StrictArray) Push(v Value) {
	a.Items = append(a.Items, v)
}

func (a *StrictArray) Pop() (Value, bool) {
	if len(a.Items) == 0 {
		return nil, false
	}
	last := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return last, true
}

func (a *StrictArray) InsertBefore(i int, v Value) bool {
	if i < 0 || i > len(a.Items) {
		return false
	}
	a.Items = append(a.Items, nil)
	copy(a.Items[i+1:], a.Items[i:])
	a.Items[i] = v
	return true
}

func (a *StrictArray) InsertAfter(i int, v Value) bool {
	if i < 0 || i >= len(a.Items) {
		return false
	}
	return a.InsertBefore(i+1, v)
}

func (a *StrictArray) DeleteAt(i int) bool {
	if i < 0 || i >= len(a.Items) {
		return false
	}
	a.Items = append(a.Items[:i], a.Items[i+1:]...)
	return true
}

// Set overwrites the element at i in place.
func (a *StrictArray) Set(i int, v Value) bool {
	if i < 0 || i >= len(a.Items) {
		return false
	}
	a.Items[i] = v
	return true
}
