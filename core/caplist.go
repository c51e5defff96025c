package core

import "container/list"

// CapList orders the inodes a client holds capabilities on, most recently
// used at the front. It stores inode numbers only; the inode objects belong
// to the inode cache.
type CapList struct {
	order *list.List
	index map[InodeNo]*list.Element
}

// NewCapList returns an empty list.
func NewCapList() *CapList {
	return &CapList{order: list.New(), index: make(map[InodeNo]*list.Element)}
}

// Touch inserts ino at the front, or moves it there if already present.
func (c *CapList) Touch(ino InodeNo) {
	if e, ok := c.index[ino]; ok {
		c.order.MoveToFront(e)
		return
	}
	c.index[ino] = c.order.PushFront(ino)
}

// Drop removes ino. It reports whether ino was present.
func (c *CapList) Drop(ino InodeNo) bool {
	e, ok := c.index[ino]
	if !ok {
		return false
	}
	c.order.Remove(e)
	delete(c.index, ino)
	return true
}

// Contains reports whether ino is in the list.
func (c *CapList) Contains(ino InodeNo) bool {
	_, ok := c.index[ino]
	return ok
}

// Len returns the number of inodes in the list.
func (c *CapList) Len() int { return c.order.Len() }

// Inodes returns the inode numbers front (most recent) to back.
func (c *CapList) Inodes() []InodeNo {
	out := make([]InodeNo, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(InodeNo))
	}
	return out
}

// Release empties the list and returns what it held, front to back.
func (c *CapList) Release() []InodeNo {
	out := c.Inodes()
	c.order.Init()
	clear(c.index)
	return out
}
