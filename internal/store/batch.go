package store

import (
	"fmt"
)

type OpKind int

const (
	// OpCreate inserts a document and fails if the key exists.
	OpCreate OpKind = iota + 1
	// OpSet inserts a document unless one with the same key exists.
	OpSet
	OpUpdate
	OpIncrement
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpIncrement:
		return "increment"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// Op is one staged mutation.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Doc        Document       // OpCreate, OpSet
	Fields     map[string]any // OpUpdate
	Field      string         // OpIncrement
	Delta      int            // OpIncrement
}

func (o Op) String() string {
	return fmt.Sprintf("%s %s/%s", o.Kind, o.Collection, o.ID)
}

// Batch collects mutations to be committed together. A Batch is a plain
// value owned by whoever builds it; it is not safe for concurrent use.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Create(doc Document) *Batch {
	b.ops = append(b.ops, Op{Kind: OpCreate, Collection: doc.TableName(), ID: doc.DocID(), Doc: doc})
	return b
}

func (b *Batch) Set(doc Document) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: doc.TableName(), ID: doc.DocID(), Doc: doc})
	return b
}

func (b *Batch) Update(collection, id string, fields map[string]any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

func (b *Batch) Increment(collection, id, field string, delta int) *Batch {
	b.ops = append(b.ops, Op{Kind: OpIncrement, Collection: collection, ID: id, Field: field, Delta: delta})
	return b
}

func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Ops() []Op {
	return b.ops
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Empty() bool {
	return len(b.ops) == 0
}
