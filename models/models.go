package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Group{},
		&Post{},
		&Comment{},
		&Follow{},
		&SocialOutbox{},
		&UploadedFile{},
		&PageView{},
	}
}
