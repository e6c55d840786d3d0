package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

// vulkanError wraps a failed result with what was being attempted.
func vulkanError(result vk.Result, what string) error {
	if err := vk.Error(result); err != nil {
		return errors.Wrapf(err, "%s (VkResult %d)", what, result)
	}
	return errors.Errorf("%s: unexpected VkResult %d", what, result)
}
