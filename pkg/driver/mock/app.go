package mock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Activities reported by the fake device.
const (
	AppPackage       = "com.google.android.contacts"
	ActivityPeople   = "com.android.contacts.activities.PeopleActivity"
	ActivityEditor   = "com.android.contacts.editor.ContactEditorActivity"
	ActivityDetails  = "com.android.contacts.quickcontact.QuickContactActivity"
	ActivityLauncher = "com.google.android.apps.nexuslauncher.NexusLauncherActivity"
)

const idPrefix = AppPackage + ":id/"

// Contact is one entry of the fake address book.
type Contact struct {
	First string
	Last  string
	Phone string
	Email string
}

// DisplayName is what the contact list shows.
func (c Contact) DisplayName() string {
	name := strings.TrimSpace(c.First + " " + c.Last)
	switch {
	case name != "":
		return name
	case c.Phone != "":
		return c.Phone
	default:
		return c.Email
	}
}

func (c Contact) empty() bool {
	return c.DisplayName() == ""
}

type screen int

const (
	screenList screen = iota
	screenEditor
	screenDiscardDialog
	screenSearch
	screenDetails
	screenMenu
	screenLauncher
)

func (s screen) activity() string {
	switch s {
	case screenEditor, screenDiscardDialog:
		return ActivityEditor
	case screenDetails:
		return ActivityDetails
	case screenLauncher:
		return ActivityLauncher
	default:
		return ActivityPeople
	}
}

// node is one element of the rendered hierarchy.
type node struct {
	key        string
	class      string
	resourceID string
	text       string
	desc       string
	hint       string
	clickable  bool
	editable   bool
}

// attr looks up an attribute by its page source name or camelCase alias.
func (n *node) attr(name string) (string, bool) {
	switch name {
	case "class", "className":
		return n.class, true
	case "resource-id", "resourceId":
		return n.resourceID, true
	case "text":
		return n.text, true
	case "content-desc", "contentDescription":
		return n.desc, true
	case "hint":
		return n.hint, true
	case "clickable":
		return strconv.FormatBool(n.clickable), true
	case "displayed", "enabled":
		return "true", true
	case "focusable":
		return strconv.FormatBool(n.clickable || n.editable), true
	case "package":
		return AppPackage, true
	default:
		return "", false
	}
}

// editor fields in display order
var editorFields = []struct {
	key   string
	label string
}{
	{"first", "First name"},
	{"last", "Last name"},
	{"phone", "Phone"},
	{"email", "Email"},
}

// appState is the UI state of one session. The address book itself lives
// on the Server and is shared by every session, like a real device.
type appState struct {
	screen   screen
	keyboard bool
	draft    Contact
	dirty    bool
	query    string
	opened   Contact
}

func (a *appState) field(key string) *string {
	switch key {
	case "first":
		return &a.draft.First
	case "last":
		return &a.draft.Last
	case "phone":
		return &a.draft.Phone
	case "email":
		return &a.draft.Email
	}
	return nil
}

func sortedContacts(contacts []Contact) []Contact {
	out := append([]Contact(nil), contacts...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName()) < strings.ToLower(out[j].DisplayName())
	})
	return out
}

// render builds the visible hierarchy for the current screen.
func (s *Server) render(a *appState) []*node {
	id := func(name string) string {
		if s.cfg.HideResourceIDs {
			return ""
		}
		return idPrefix + name
	}

	var nodes []*node
	switch a.screen {
	case screenList:
		nodes = append(nodes,
			&node{key: "list:title", class: "android.widget.TextView", resourceID: id("toolbar_title"), text: "Contacts"},
			&node{key: "list:search", class: "android.widget.ImageButton", resourceID: id("open_search_bar"), desc: "Search", clickable: true},
			&node{key: "list:more", class: "android.widget.ImageButton", desc: "More options", clickable: true},
		)
		for i, c := range sortedContacts(s.contacts) {
			nodes = append(nodes,
				&node{key: fmt.Sprintf("list:row:%d", i), class: "android.widget.LinearLayout", resourceID: id("contact_list_item"), clickable: true},
				&node{key: fmt.Sprintf("list:contact:%d", i), class: "android.widget.TextView", resourceID: id("cliv_name_textview"), text: c.DisplayName(), clickable: true},
			)
		}
		nodes = append(nodes,
			&node{key: "list:fab", class: "android.widget.ImageButton", resourceID: id("floating_action_button"), desc: "Create contact", clickable: true},
		)

	case screenEditor:
		nodes = append(nodes,
			&node{key: "editor:cancel", class: "android.widget.ImageButton", desc: "Cancel", clickable: true},
			&node{key: "editor:title", class: "android.widget.TextView", text: "Create contact"},
			&node{key: "editor:save", class: "android.widget.Button", resourceID: id("toolbar_button"), text: "Save", clickable: true},
		)
		for _, f := range editorFields {
			text := *a.field(f.key)
			if text == "" {
				text = f.label
			}
			nodes = append(nodes, &node{
				key: "editor:field:" + f.key, class: "android.widget.EditText",
				text: text, hint: f.label, clickable: true, editable: true,
			})
		}

	case screenDiscardDialog:
		nodes = append(nodes,
			&node{key: "dialog:title", class: "android.widget.TextView", resourceID: id("alertTitle"), text: "Discard changes?"},
			&node{key: "dialog:cancel", class: "android.widget.Button", resourceID: "android:id/button3", text: "Cancel", clickable: true},
			&node{key: "dialog:discard", class: "android.widget.Button", resourceID: "android:id/button2", text: "Discard", clickable: true},
			&node{key: "dialog:save", class: "android.widget.Button", resourceID: "android:id/button1", text: "Save", clickable: true},
		)

	case screenSearch:
		text := a.query
		if text == "" {
			text = "Search contacts"
		}
		nodes = append(nodes,
			&node{key: "search:up", class: "android.widget.ImageButton", desc: "Navigate up", clickable: true},
			&node{key: "search:field", class: "android.widget.EditText", resourceID: id("open_search_view_edit_text"), text: text, hint: "Search contacts", clickable: true, editable: true},
		)
		if a.query != "" {
			for i, c := range sortedContacts(s.contacts) {
				if strings.Contains(strings.ToLower(c.DisplayName()), strings.ToLower(a.query)) {
					nodes = append(nodes, &node{key: fmt.Sprintf("search:result:%d", i), class: "android.widget.TextView", resourceID: id("cliv_name_textview"), text: c.DisplayName(), clickable: true})
				}
			}
		}

	case screenDetails:
		nodes = append(nodes,
			&node{key: "details:up", class: "android.widget.ImageButton", desc: "Navigate up", clickable: true},
			&node{key: "details:edit", class: "android.widget.ImageButton", desc: "Edit contact", clickable: true},
			&node{key: "details:name", class: "android.widget.TextView", resourceID: id("large_title"), text: a.opened.DisplayName()},
		)
		if a.opened.Phone != "" {
			nodes = append(nodes, &node{key: "details:phone", class: "android.widget.TextView", resourceID: id("header"), text: a.opened.Phone})
		}
		if a.opened.Email != "" {
			nodes = append(nodes, &node{key: "details:email", class: "android.widget.TextView", resourceID: id("header"), text: a.opened.Email})
		}

	case screenMenu:
		nodes = append(nodes,
			&node{key: "menu:settings", class: "android.widget.TextView", text: "Settings", clickable: true},
			&node{key: "menu:help", class: "android.widget.TextView", text: "Help & feedback", clickable: true},
		)

	case screenLauncher:
		// the app is in the background; nothing of it is on screen
	}
	return nodes
}

// click performs the screen transition bound to a node.
func (s *Server) click(a *appState, n *node) error {
	key := n.key
	switch {
	case key == "list:fab":
		a.screen, a.draft, a.dirty, a.keyboard = screenEditor, Contact{}, false, false
	case key == "list:search":
		a.screen, a.query = screenSearch, ""
	case key == "list:more":
		a.screen = screenMenu
	case strings.HasPrefix(key, "list:contact:"), strings.HasPrefix(key, "search:result:"), strings.HasPrefix(key, "list:row:"):
		idx, _ := strconv.Atoi(key[strings.LastIndex(key, ":")+1:])
		contacts := sortedContacts(s.contacts)
		if idx >= len(contacts) {
			return fmt.Errorf("contact %d no longer exists", idx)
		}
		a.opened, a.screen, a.keyboard = contacts[idx], screenDetails, false
	case strings.HasPrefix(key, "editor:field:"), key == "search:field":
		a.keyboard = true
	case key == "editor:save":
		s.save(a)
		if a.draft.empty() {
			a.screen = screenList
		} else {
			a.opened, a.screen = a.draft, screenDetails
		}
		a.keyboard = false
	case key == "editor:cancel":
		s.back(a)
	case key == "dialog:save":
		s.save(a)
		a.screen = screenList
	case key == "dialog:discard":
		a.screen = screenList
	case key == "dialog:cancel":
		a.screen = screenEditor
	case key == "search:up", key == "details:up":
		a.screen, a.keyboard = screenList, false
	case strings.HasPrefix(key, "menu:"):
		a.screen = screenList
	}
	return nil
}

// back emulates the hardware back key.
func (s *Server) back(a *appState) {
	if a.keyboard {
		a.keyboard = false
		return
	}
	switch a.screen {
	case screenEditor:
		if a.dirty {
			a.screen = screenDiscardDialog
		} else {
			a.screen = screenList
		}
	case screenDiscardDialog:
		a.screen = screenEditor
	case screenSearch, screenDetails, screenMenu:
		a.screen, a.query = screenList, ""
	case screenList:
		a.screen = screenLauncher
	}
}

func (s *Server) save(a *appState) {
	if a.draft.empty() {
		return
	}
	s.contacts = append(s.contacts, a.draft)
	a.dirty = false
}

// typeInto appends text to an editable node, as W3C send keys does.
func (s *Server) typeInto(a *appState, n *node, text string) error {
	switch {
	case strings.HasPrefix(n.key, "editor:field:"):
		f := a.field(strings.TrimPrefix(n.key, "editor:field:"))
		*f += text
		a.dirty = true
	case n.key == "search:field":
		a.query += text
	default:
		return fmt.Errorf("element is not editable")
	}
	a.keyboard = true
	return nil
}

func (s *Server) clear(a *appState, n *node) error {
	switch {
	case strings.HasPrefix(n.key, "editor:field:"):
		*a.field(strings.TrimPrefix(n.key, "editor:field:")) = ""
	case n.key == "search:field":
		a.query = ""
	default:
		return fmt.Errorf("element is not editable")
	}
	return nil
}
