package domain

// Visibility rules are derived from the user's role and scope, never stored.
// Every function here is pure and returns a non-nil slice in input order.

// FilterProjects returns the projects the user may observe.
// view_all_data sees everything; an agency user sees only their own agency's
// projects; everyone else sees nothing.
func FilterProjects(user *User, projects []*Project) []*Project {
	if HasPermission(user, PermViewAllData) {
		return append(make([]*Project, 0, len(projects)), projects...)
	}
	visible := make([]*Project, 0)
	for _, p := range projects {
		if CanViewProject(user, p) {
			visible = append(visible, p)
		}
	}
	return visible
}

// CanViewProject applies the FilterProjects rule to a single project
func CanViewProject(user *User, project *Project) bool {
	if user == nil || project == nil {
		return false
	}
	if HasPermission(user, PermViewAllData) {
		return true
	}
	if user.Role == RoleAgencyUser {
		return user.AgencyID != "" && project.AgencyID == user.AgencyID
	}
	return false
}

// FilterTasks returns the tasks the user may observe.
// manage_tasks or view_all_data sees everything; a developer sees only tasks
// assigned to them; everyone else sees nothing.
func FilterTasks(user *User, tasks []*Task) []*Task {
	if seesAllTasks(user) {
		return append(make([]*Task, 0, len(tasks)), tasks...)
	}
	visible := make([]*Task, 0)
	for _, t := range tasks {
		if CanViewTask(user, t) {
			visible = append(visible, t)
		}
	}
	return visible
}

// CanViewTask applies the FilterTasks rule to a single task
func CanViewTask(user *User, task *Task) bool {
	if user == nil || task == nil {
		return false
	}
	if seesAllTasks(user) {
		return true
	}
	if user.Role == RoleDeveloper {
		return user.ID != "" && task.AssignedTo == user.ID
	}
	return false
}

func seesAllTasks(user *User) bool {
	return HasPermission(user, PermManageTasks) || HasPermission(user, PermViewAllData)
}
