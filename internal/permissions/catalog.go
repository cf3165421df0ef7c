package permissions

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Permission is an atomic capability known to the system.
type Permission struct {
	ID     string `json:"id"`
	Module string `json:"module"`
	Name   string `json:"name"`
}

// Module groups the permissions of one functional area, in display order.
type Module struct {
	Name        string       `json:"module"`
	Permissions []Permission `json:"permissions"`
}

// CatalogEntry is the inbound shape of a single permission inside a module listing.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Catalog is the immutable set of permissions known to the system, grouped by module.
type Catalog struct {
	modules []Module
	order   []Permission
	index   map[string]int
}

// NewCatalog builds a catalog from ordered module groups. Module and permission
// order is kept; blank ids are skipped and a duplicated id keeps its first position.
func NewCatalog(groups []Module) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, group := range groups {
		name := strings.TrimSpace(group.Name)
		mod := Module{Name: name}
		for _, p := range group.Permissions {
			id := NormalizeID(p.ID)
			if id == "" {
				continue
			}
			if _, dup := c.index[FoldID(id)]; dup {
				continue
			}
			perm := Permission{ID: id, Module: name, Name: strings.TrimSpace(p.Name)}
			if perm.Module == "" {
				perm.Module = moduleOf(id)
				mod.Name = perm.Module
			}
			if perm.Name == "" {
				perm.Name = id
			}
			c.index[FoldID(id)] = len(c.order)
			c.order = append(c.order, perm)
			mod.Permissions = append(mod.Permissions, perm)
		}
		if len(mod.Permissions) > 0 {
			c.modules = append(c.modules, mod)
		}
	}
	return c
}

// NewCatalogFromModules builds a catalog from the module -> permissions mapping
// served by the role service. Modules are ordered by name.
func NewCatalogFromModules(modules map[string][]CatalogEntry) *Catalog {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	groups := make([]Module, 0, len(names))
	for _, name := range names {
		entries := modules[name]
		perms := make([]Permission, 0, len(entries))
		for _, e := range entries {
			perms = append(perms, Permission{ID: e.ID, Name: e.Name})
		}
		groups = append(groups, Module{Name: name, Permissions: perms})
	}
	return NewCatalog(groups)
}

// Lookup returns the permission registered under id.
func (c *Catalog) Lookup(id string) (Permission, bool) {
	if c == nil {
		return Permission{}, false
	}
	pos, ok := c.index[FoldID(id)]
	if !ok {
		return Permission{}, false
	}
	return c.order[pos], true
}

// Contains reports whether id is part of the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Len returns the number of permissions in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Permissions returns every permission in catalog order (module, then permission).
func (c *Catalog) Permissions() []Permission {
	if c == nil {
		return nil
	}
	out := make([]Permission, len(c.order))
	copy(out, c.order)
	return out
}

// Modules returns the module groups in catalog order.
func (c *Catalog) Modules() []Module {
	if c == nil {
		return nil
	}
	out := make([]Module, len(c.modules))
	for i, m := range c.modules {
		perms := make([]Permission, len(m.Permissions))
		copy(perms, m.Permissions)
		out[i] = Module{Name: m.Name, Permissions: perms}
	}
	return out
}

// Unknown returns the ids that are not part of the catalog, sorted and
// spelled as received.
func (c *Catalog) Unknown(ids []string) []string {
	missing := lo.Filter(NormalizeIDs(ids), func(id string, _ int) bool {
		return !c.Contains(id)
	})
	return newIDSet(missing...).sorted()
}

var moduleTitle = cases.Title(language.Und)

// ModuleLabel renders a module name for display, e.g. "stone_deduction" -> "Stone Deduction".
func ModuleLabel(module string) string {
	return moduleTitle.String(strings.ReplaceAll(strings.TrimSpace(module), "_", " "))
}

func moduleOf(id string) string {
	if i := strings.LastIndex(id, "."); i > 0 {
		return id[:i]
	}
	return id
}
